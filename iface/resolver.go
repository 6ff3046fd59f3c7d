package iface

import (
	"net"
	"time"
)

// Role identifies which side of a replica set an endpoint or an
// operation targets.
type Role int

const (
	// RolePrimary is the writable, authoritative node of a replica set.
	RolePrimary Role = iota

	// RoleReplica is a read-only follower node.
	RoleReplica
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}

	return "replica"
}

// ResolvedEndpoint is the address of one node of a replica set as
// reported by the sentinel quorum. A value is built wholesale on each
// resolution and never mutated in place.
type ResolvedEndpoint struct {
	Role       Role
	Host       string
	Port       string
	ResolvedAt time.Time
}

// Addr returns the host:port pair of the endpoint.
func (e ResolvedEndpoint) Addr() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// Resolver queries the sentinel quorum for the current address of one
// role of a named replica set.
type Resolver interface {
	// Resolve returns a fresh endpoint for the given role. Resolution
	// opens no data connection and has no side effect beyond the
	// sentinel query itself. It is invoked lazily - on first use of a
	// role, after a connection failure, or on an explicit refresh.
	Resolve(role Role) (ResolvedEndpoint, error)
}
