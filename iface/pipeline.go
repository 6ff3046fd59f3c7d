package iface

// Pipeline wraps an ordered sequence of commands bound to a single
// endpoint role and processed with a single request/response exchange.
// This reduces bandwidth and latency around communication with the
// remote server. A pipeline is owned exclusively by its creator and
// must not be shared between goroutines.
type Pipeline interface {
	// Add will attach a command to this pipeline. The command's key
	// arguments are rewritten under the application prefix immediately,
	// but nothing is sent to the remote server until Run is invoked.
	// Commands outside the supported surface, commands whose
	// classification does not match the pipeline's bound role, and
	// appends to an already-closed pipeline are rejected.
	Add(command string, args ...interface{}) error

	// Run will send all commands attached to this pipeline in a single
	// request and return the results of each command in the order they
	// were attached. The MULTI/EXEC commands are added implicitly, so
	// either every queued command takes effect or none does - Run never
	// reports a partial result sequence. Run closes the pipeline.
	Run() ([]interface{}, error)

	// Discard closes the pipeline without sending anything. Discarding
	// a pipeline that already ran is a no-op.
	Discard()
}
