package sentra

import (
	"time"

	"github.com/bradhe/stopwatch"
	"github.com/efritz/backoff"
	"github.com/efritz/glock"
	"github.com/efritz/overcurrent"

	"github.com/efritz/sentra/iface"
)

type (
	// Client is a goroutine-safe Redis client that routes each command
	// through sentinel-resolved endpoints based on its read/write
	// classification, under an application key namespace.
	Client = iface.Client

	client struct {
		primaryPool   Pool
		replicaPool   Pool
		keys          *keyspace
		backoff       backoff.Backoff
		borrowTimeout *time.Duration
		clock         glock.Clock
		logger        Logger
	}

	clientConfig struct {
		masterSet           string
		password            string
		sentinelPassword    string
		sentinelPasswordSet bool
		database            int
		connectTimeout      time.Duration
		readTimeout         time.Duration
		writeTimeout        time.Duration
		sentinelTimeout     time.Duration
		poolCapacity        int
		replicaFallback     bool
		breakerFunc         BreakerFunc
		backoff             backoff.Backoff
		clock               glock.Clock
		borrowTimeout       *time.Duration
		dialer              DialFunc
		sentinelDialer      DialFunc
		logger              Logger
	}

	// ConfigFunc is a function used to initialize a new client.
	ConfigFunc func(*clientConfig)
)

// Interval applied between the failed attempt and the single
// re-resolve-and-reconnect retry.
var defaultBackoff = backoff.NewConstantBackoff(time.Millisecond * 50)

// NewClient creates a client for the replica set monitored by the
// sentinel quorum at sentinelAddr. Every key the client touches is
// namespaced under appPrefix, which is required.
func NewClient(sentinelAddr, appPrefix string, configs ...ConfigFunc) (Client, error) {
	if sentinelAddr == "" {
		return nil, newInitError("sentinel address is required")
	}

	if appPrefix == "" {
		return nil, newInitError("application prefix is required")
	}

	config := &clientConfig{
		masterSet:       "mymaster",
		database:        0,
		connectTimeout:  time.Second * 5,
		readTimeout:     time.Second * 5,
		writeTimeout:    time.Second * 5,
		sentinelTimeout: time.Millisecond * 500,
		poolCapacity:    10,
		replicaFallback: true,
		breakerFunc:     noopBreakerFunc,
		backoff:         defaultBackoff,
		clock:           glock.NewRealClock(),
		borrowTimeout:   nil,
		logger:          &defaultLogger{},
	}

	for _, f := range configs {
		f(config)
	}

	if config.masterSet == "" {
		return nil, newInitError("master set name must not be empty")
	}

	if config.poolCapacity < 1 {
		return nil, newInitError("pool capacity must be positive")
	}

	dialer := config.dialer
	if dialer == nil {
		dialer = makeDialer(config)
	}

	sentinelDialer := config.sentinelDialer
	if sentinelDialer == nil {
		password := config.password
		if config.sentinelPasswordSet {
			password = config.sentinelPassword
		}

		sentinelDialer = makeSentinelDialer(password, config.sentinelTimeout)
	}

	resolver := NewSentinelResolver(
		sentinelAddr,
		config.masterSet,
		sentinelDialer,
		config.replicaFallback,
		config.breakerFunc,
		config.clock,
		config.logger,
	)

	makePool := func(role Role) Pool {
		return NewPool(
			role,
			resolver,
			dialer,
			config.poolCapacity,
			config.logger,
			config.breakerFunc,
			config.clock,
		)
	}

	return &client{
		primaryPool:   makePool(RolePrimary),
		replicaPool:   makePool(RoleReplica),
		keys:          newKeyspace(appPrefix),
		backoff:       config.backoff,
		borrowTimeout: config.borrowTimeout,
		clock:         config.clock,
		logger:        config.logger,
	}, nil
}

// WithMasterSet sets the named replica set to query the sentinel
// quorum for (default is "mymaster").
func WithMasterSet(name string) ConfigFunc {
	return func(c *clientConfig) { c.masterSet = name }
}

// WithPassword sets the password for data endpoints (default is "").
// The same password is sent to the sentinel quorum unless
// WithSentinelPassword overrides it.
func WithPassword(password string) ConfigFunc {
	return func(c *clientConfig) { c.password = password }
}

// WithSentinelPassword sets a separate password for the sentinel
// quorum.
func WithSentinelPassword(password string) ConfigFunc {
	return func(c *clientConfig) {
		c.sentinelPassword = password
		c.sentinelPasswordSet = true
	}
}

// WithDatabase sets the database index selected on data endpoints
// (default is 0).
func WithDatabase(database int) ConfigFunc {
	return func(c *clientConfig) { c.database = database }
}

// WithConnectTimeout sets the connect timeout for new data connections
// (default is 5 seconds).
func WithConnectTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.connectTimeout = timeout }
}

// WithReadTimeout sets the read timeout for all data connections
// (default is 5 seconds).
func WithReadTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.readTimeout = timeout }
}

// WithWriteTimeout sets the write timeout for all data connections
// (default is 5 seconds).
func WithWriteTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.writeTimeout = timeout }
}

// WithSentinelTimeout bounds how long a single sentinel query may
// block (default is 500 milliseconds).
func WithSentinelTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.sentinelTimeout = timeout }
}

// WithPoolCapacity sets the maximum number of concurrent connections
// that can be in use at once per endpoint role (default is 10).
func WithPoolCapacity(capacity int) ConfigFunc {
	return func(c *clientConfig) { c.poolCapacity = capacity }
}

// WithBorrowTimeout sets the maximum time a dispatch will wait for a
// pooled connection before failing.
func WithBorrowTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.borrowTimeout = &timeout }
}

// WithReplicaFallback controls whether reads degrade to the primary
// endpoint when the sentinel quorum reports no healthy replica
// (default is true, matching the behavior applications relying on a
// single replica set generally expect).
func WithReplicaFallback(fallback bool) ConfigFunc {
	return func(c *clientConfig) { c.replicaFallback = fallback }
}

// WithBreaker sets the circuit breaker instance to use around new
// connections and sentinel queries. The default uses a no-op circuit
// breaker.
func WithBreaker(breaker overcurrent.CircuitBreaker) ConfigFunc {
	return func(c *clientConfig) { c.breakerFunc = breaker.Call }
}

// WithBreakerRegistry sets the overcurrent registry to use and the
// name of the circuit breaker config to use around new connections
// and sentinel queries. The default uses a no-op circuit breaker.
func WithBreakerRegistry(registry overcurrent.Registry, name string) ConfigFunc {
	return func(c *clientConfig) {
		c.breakerFunc = func(f overcurrent.BreakerFunc) error {
			return registry.Call(name, f, nil)
		}
	}
}

// WithDialer sets the function used to open data connections. The
// default dials over TCP with the configured credentials and
// timeouts.
func WithDialer(dialer DialFunc) ConfigFunc {
	return func(c *clientConfig) { c.dialer = dialer }
}

// WithLogger sets the logger instance (the default will use Go's
// builtin logging library).
func WithLogger(logger Logger) ConfigFunc {
	return func(c *clientConfig) { c.logger = logger }
}

func withClock(clock glock.Clock) ConfigFunc {
	return func(c *clientConfig) { c.clock = clock }
}

func withSentinelDialer(dialer DialFunc) ConfigFunc {
	return func(c *clientConfig) { c.sentinelDialer = dialer }
}

//
// Client Implementation

func (c *client) Connect() error {
	for _, pool := range []Pool{c.primaryPool, c.replicaPool} {
		conn, ok := c.timedBorrow(pool)
		if !ok {
			return newConnectionError(ErrNoConnection, "failed to establish initial connections")
		}

		pool.Release(conn)
	}

	return nil
}

func (c *client) Close() {
	c.primaryPool.Close()
	c.replicaPool.Close()
}

func (c *client) Do(command string, args ...interface{}) (interface{}, error) {
	info, ok := lookupCommand(command)
	if !ok {
		return nil, ErrUnknownCommand
	}

	result, err := c.do(c.poolFor(info.kind), command, c.keys.wrapArgs(info, args))
	if err != nil {
		return nil, err
	}

	return c.keys.unwrapResult(info, result), nil
}

func (c *client) WritePipeline() Pipeline {
	return newPipeline(c, RolePrimary)
}

func (c *client) ReadPipeline() Pipeline {
	return newPipeline(c, RoleReplica)
}

func (c *client) WithWritePipeline(f func(Pipeline) error) ([]interface{}, error) {
	return c.withPipeline(c.WritePipeline(), f)
}

func (c *client) WithReadPipeline(f func(Pipeline) error) ([]interface{}, error) {
	return c.withPipeline(c.ReadPipeline(), f)
}

// withPipeline guarantees the batch never outlives this call with
// queued-but-unsent commands: it is flushed when f succeeds and
// discarded on every other path.
func (c *client) withPipeline(p Pipeline, f func(Pipeline) error) ([]interface{}, error) {
	defer p.Discard()

	if err := f(p); err != nil {
		return nil, err
	}

	return p.Run()
}

//
// Client Helper Functions

func (c *client) poolFor(kind commandKind) Pool {
	if kind == cmdWrite {
		return c.primaryPool
	}

	return c.replicaPool
}

// do dispatches one command, retrying exactly once on a fresh
// connection to a freshly resolved endpoint if the first attempt
// failed at the connection level. Non-connection errors are surfaced
// unmodified - retrying would not change their outcome.
func (c *client) do(pool Pool, command string, args []interface{}) (interface{}, error) {
	result, err := c.doOnce(pool, command, args)
	if err == nil || !retryable(err) {
		return result, err
	}

	// The bound endpoint may be gone entirely, or demoted by a
	// failover. Flush the pool so the next dial asks the sentinel
	// quorum again, and give the topology a beat to settle.
	c.logger.Printf("Connection failure on %s, re-resolving and retrying", command)
	pool.Invalidate()
	c.pause()

	result, err = c.doOnce(pool, command, args)
	if err != nil && retryable(err) {
		return nil, newConnectionError(err, "endpoint unreachable after re-resolution")
	}

	return result, err
}

func (c *client) doOnce(pool Pool, command string, args []interface{}) (interface{}, error) {
	conn, ok := c.timedBorrow(pool)
	if !ok {
		return nil, ErrNoConnection
	}

	result, err := conn.Do(command, args...)
	c.release(pool, conn, err)
	return result, err
}

// transact runs the queued commands of a batch in a single MULTI/EXEC
// exchange. A connection-level failure before EXEC reached the wire
// is retried once on a freshly resolved endpoint; a failure on EXEC
// itself is never retried, as the batch may already have been applied.
func (c *client) transact(pool Pool, commands []commandPair) (interface{}, error) {
	result, sent, err := c.transactOnce(pool, commands)
	if err == nil || !retryable(err) {
		return result, err
	}

	if sent {
		return nil, newConnectionError(err, "connection failed during batch flush")
	}

	c.logger.Printf("Connection failure on batch flush, re-resolving and retrying")
	pool.Invalidate()
	c.pause()

	result, _, err = c.transactOnce(pool, commands)
	if err != nil && retryable(err) {
		return nil, newConnectionError(err, "endpoint unreachable after re-resolution")
	}

	return result, err
}

// transactOnce reports, alongside the result, whether EXEC was issued
// before the failure. A connection that errored mid-batch is always
// closed - it must never return to the pool with a half-sent
// pipeline.
func (c *client) transactOnce(pool Pool, commands []commandPair) (interface{}, bool, error) {
	conn, ok := c.timedBorrow(pool)
	if !ok {
		return nil, false, ErrNoConnection
	}

	if err := conn.Send("MULTI"); err != nil {
		c.discard(pool, conn)
		return nil, false, err
	}

	for _, command := range commands {
		if err := conn.Send(command.command, command.args...); err != nil {
			c.discard(pool, conn)
			return nil, false, err
		}
	}

	result, err := conn.Do("EXEC")
	if err != nil {
		c.discard(pool, conn)
		return nil, true, err
	}

	pool.Release(conn)
	return result, true, nil
}

// Borrows and logs the time it took to return from blocking on the
// pool's borrow method.
func (c *client) timedBorrow(pool Pool) (Conn, bool) {
	start := stopwatch.Start()
	conn, ok := c.borrow(pool)
	elapsed := start.Stop().Milliseconds()

	if ok {
		c.logger.Printf("Received connection after %vms", elapsed)
	} else {
		c.logger.Printf("Could not borrow connection after %vms", elapsed)
	}

	return conn, ok
}

// Borrows from the pool using the correct method (depending on if
// a borrow timeout was configured on this client).
func (c *client) borrow(pool Pool) (Conn, bool) {
	if c.borrowTimeout == nil {
		return pool.Borrow()
	}

	return pool.BorrowTimeout(*c.borrowTimeout)
}

// Release a connection back to its pool. A connection that failed at
// the connection level is closed and released as a nil value - bad
// connections never go back to the pool. A connection that returned a
// command error stays usable; its response was fully consumed.
func (c *client) release(pool Pool, conn Conn, err error) {
	if err != nil && isConnError(err) {
		conn.Close()
		conn = nil
	}

	pool.Release(conn)
}

// Close a connection and release its slot back to the pool.
func (c *client) discard(pool Pool, conn Conn) {
	conn.Close()
	pool.Release(nil)
}

func (c *client) pause() {
	if c.clock == nil || c.backoff == nil {
		return
	}

	<-c.clock.After(c.backoff.NextInterval())
}

// Given an error, determine if we should try to re-invoke the
// operation on a fresh connection to a freshly resolved endpoint.
func retryable(err error) bool {
	return err == ErrNoConnection || isConnError(err)
}
