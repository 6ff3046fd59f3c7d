package iface

// Conn abstracts a single, feature-minimal connection to one resolved
// endpoint. The same abstraction covers data connections and the
// short-lived control connections used to query the sentinel quorum.
type Conn interface {
	// Close the connection to the remote server.
	Close() error

	// Do performs a command on the remote server and returns its
	// result.
	Do(command string, args ...interface{}) (interface{}, error)

	// Send will publish command as part of a MULTI/EXEC sequence
	// to the remote server.
	Send(command string, args ...interface{}) error
}
