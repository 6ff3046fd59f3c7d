package sentra

import (
	"context"
	"strings"

	"github.com/efritz/glock"
	"github.com/gomodule/redigo/redis"

	"github.com/efritz/sentra/iface"
)

type (
	// Role identifies which side of a replica set an endpoint or an
	// operation targets.
	Role = iface.Role

	// ResolvedEndpoint is the address of one node of a replica set as
	// reported by the sentinel quorum.
	ResolvedEndpoint = iface.ResolvedEndpoint

	// Resolver queries the sentinel quorum for the current address of
	// one role of a named replica set.
	Resolver = iface.Resolver

	sentinelResolver struct {
		addr            string
		masterSet       string
		dialer          DialFunc
		replicaFallback bool
		breakerFunc     BreakerFunc
		clock           glock.Clock
		logger          Logger
	}
)

// Role constants re-exported for callers of the root package.
const (
	RolePrimary = iface.RolePrimary
	RoleReplica = iface.RoleReplica
)

// Flags in a sentinel replica report that mark the node unusable
// for reads.
var unhealthyFlags = []string{"s_down", "o_down", "disconnected"}

// NewSentinelResolver creates a resolver that queries the sentinel at
// addr for the topology of the named master set. Each resolution opens
// one short-lived control connection through the given dialer. If
// replicaFallback is set, replica resolution degrades to the primary
// address when the quorum reports no healthy replica.
func NewSentinelResolver(
	addr string,
	masterSet string,
	dialer DialFunc,
	replicaFallback bool,
	breakerFunc BreakerFunc,
	clock glock.Clock,
	logger Logger,
) Resolver {
	return &sentinelResolver{
		addr:            addr,
		masterSet:       masterSet,
		dialer:          dialer,
		replicaFallback: replicaFallback,
		breakerFunc:     breakerFunc,
		clock:           clock,
		logger:          logger,
	}
}

func (r *sentinelResolver) Resolve(role Role) (ResolvedEndpoint, error) {
	conn, err := r.dial()
	if err != nil {
		return ResolvedEndpoint{}, newSentinelError(err, "failed to connect to sentinel at %s", r.addr)
	}

	defer conn.Close()

	if role == RolePrimary {
		return r.resolvePrimary(conn)
	}

	return r.resolveReplica(conn)
}

// Dial the control channel. The call to the dialer function is wrapped
// in a circuit breaker so that if the quorum is down we are not going
// to hammer it.
func (r *sentinelResolver) dial() (Conn, error) {
	var conn Conn
	err := r.breakerFunc(func(ctx context.Context) error {
		temp, err := r.dialer(r.addr)
		conn = temp
		return err
	})

	return conn, err
}

func (r *sentinelResolver) resolvePrimary(conn Conn) (ResolvedEndpoint, error) {
	reply, err := redis.Strings(conn.Do("SENTINEL", "get-master-addr-by-name", r.masterSet))
	if err == redis.ErrNil {
		return ResolvedEndpoint{}, newSentinelError(nil, "sentinel reports no primary for master set %s", r.masterSet)
	}

	if err != nil {
		return ResolvedEndpoint{}, newSentinelError(err, "failed to query sentinel for master set %s", r.masterSet)
	}

	if len(reply) != 2 {
		return ResolvedEndpoint{}, newSentinelError(nil, "malformed primary address from sentinel for master set %s", r.masterSet)
	}

	endpoint := ResolvedEndpoint{
		Role:       RolePrimary,
		Host:       reply[0],
		Port:       reply[1],
		ResolvedAt: r.clock.Now(),
	}

	r.logger.Printf("Resolved primary for %s to %s", r.masterSet, endpoint.Addr())
	return endpoint, nil
}

func (r *sentinelResolver) resolveReplica(conn Conn) (ResolvedEndpoint, error) {
	values, err := redis.Values(conn.Do("SENTINEL", "slaves", r.masterSet))
	if err != nil {
		return ResolvedEndpoint{}, newSentinelError(err, "failed to query sentinel for replicas of master set %s", r.masterSet)
	}

	now := r.clock.Now()
	healthy := []ResolvedEndpoint{}

	for _, value := range values {
		attrs, err := redis.StringMap(value, nil)
		if err != nil {
			continue
		}

		if !replicaHealthy(attrs["flags"]) {
			continue
		}

		healthy = append(healthy, ResolvedEndpoint{
			Role:       RoleReplica,
			Host:       attrs["ip"],
			Port:       attrs["port"],
			ResolvedAt: now,
		})
	}

	if len(healthy) == 0 {
		if !r.replicaFallback {
			return ResolvedEndpoint{}, newSentinelError(nil, "sentinel reports no healthy replica for master set %s", r.masterSet)
		}

		// Documented fallback policy: when the quorum reports no
		// healthy replica, reads degrade to the primary address.
		endpoint, err := r.resolvePrimary(conn)
		if err != nil {
			return ResolvedEndpoint{}, err
		}

		endpoint.Role = RoleReplica
		r.logger.Printf("No healthy replica for %s, reads fall back to primary at %s", r.masterSet, endpoint.Addr())
		return endpoint, nil
	}

	endpoint := chooseRandom(healthy)
	r.logger.Printf("Resolved replica for %s to %s", r.masterSet, endpoint.Addr())
	return endpoint, nil
}

func replicaHealthy(flags string) bool {
	for _, flag := range unhealthyFlags {
		if strings.Contains(flags, flag) {
			return false
		}
	}

	return true
}
