package sentra

import "github.com/efritz/sentra/iface"

type (
	// Pipeline wraps an ordered sequence of commands bound to a single
	// endpoint role and processed with a single request/response
	// exchange. This reduces bandwidth and latency around
	// communication with the remote server.
	Pipeline = iface.Pipeline

	pipeline struct {
		client   *client
		role     Role
		commands []commandPair
		infos    []commandInfo
		closed   bool
	}

	commandPair struct {
		command string
		args    []interface{}
	}
)

func newPipeline(client *client, role Role) Pipeline {
	return &pipeline{
		client:   client,
		role:     role,
		commands: []commandPair{},
	}
}

// Add will attach a command to this pipeline. The command's key
// arguments are rewritten immediately; nothing is sent to the remote
// server until Run is invoked. Commands classified for the opposite
// endpoint role are rejected here rather than silently routed to the
// wrong endpoint.
func (p *pipeline) Add(command string, args ...interface{}) error {
	if p.closed {
		return ErrPipelineClosed
	}

	info, ok := lookupCommand(command)
	if !ok {
		return ErrUnknownCommand
	}

	if roleFor(info.kind) != p.role {
		return ErrRoleMismatch
	}

	p.commands = append(p.commands, commandPair{
		command: command,
		args:    p.client.keys.wrapArgs(info, args),
	})
	p.infos = append(p.infos, info)

	return nil
}

// Run will send all commands attached to this pipeline in a single
// MULTI/EXEC exchange against the bound role's endpoint and return
// one result per command, in the order the commands were attached.
// Either every queued command takes effect or none does. Run closes
// the pipeline.
func (p *pipeline) Run() ([]interface{}, error) {
	if p.closed {
		return nil, ErrPipelineClosed
	}

	p.closed = true

	if len(p.commands) == 0 {
		return []interface{}{}, nil
	}

	result, err := p.client.transact(p.pool(), p.commands)
	if err != nil {
		return nil, err
	}

	results, ok := result.([]interface{})
	if !ok || len(results) != len(p.commands) {
		return nil, newConnectionError(nil, "batch response did not match queued commands")
	}

	for i, info := range p.infos {
		results[i] = p.client.keys.unwrapResult(info, results[i])
	}

	return results, nil
}

// Discard closes the pipeline without sending anything.
func (p *pipeline) Discard() {
	p.closed = true
}

func (p *pipeline) pool() Pool {
	if p.role == RolePrimary {
		return p.client.primaryPool
	}

	return p.client.replicaPool
}
