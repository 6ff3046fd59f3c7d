package iface

// Client is a goroutine-safe Redis client that discovers the current
// primary and replica endpoints of a replica set through a sentinel
// quorum, routes each command to the endpoint matching its read/write
// classification, and isolates the application's keyspace behind a
// namespace prefix.
type Client interface {
	// Connect eagerly resolves and dials both the primary and the
	// replica endpoint. It is optional - the first command issued on
	// each side will lazily resolve and connect if it is omitted.
	Connect() error

	// Close will close all open connections to both endpoints.
	Close()

	// Do classifies the command, rewrites its key arguments under the
	// application prefix, runs it on the endpoint matching the
	// classification, and returns its raw response with any key-shaped
	// result fields rewritten back. Commands outside the supported
	// surface are rejected.
	Do(command string, args ...interface{}) (interface{}, error)

	// WritePipeline returns a batch bound to the primary endpoint.
	// Commands attached to it are queued locally and sent as a single
	// request when Run is invoked.
	WritePipeline() Pipeline

	// ReadPipeline returns a batch bound to the replica endpoint.
	ReadPipeline() Pipeline

	// WithWritePipeline passes a fresh write-bound batch to f and
	// guarantees the batch is either flushed (f returned nil) or
	// discarded (f returned an error) before this method returns, so a
	// connection is never left with a half-sent pipeline.
	WithWritePipeline(f func(Pipeline) error) ([]interface{}, error)

	// WithReadPipeline is WithWritePipeline for a replica-bound batch.
	WithReadPipeline(f func(Pipeline) error) ([]interface{}, error)

	// Get retrieves a string value from the replica endpoint.
	Get(key string) (string, error)

	// Set stores a string value on the primary endpoint.
	Set(key, value string) error

	// SetNX stores a value only if the key does not already exist and
	// reports whether it was stored.
	SetNX(key, value string) (bool, error)

	// Incr increments the integer value stored at key by one and
	// returns the new value.
	Incr(key string) (int64, error)

	// Del removes the given keys and returns the number removed.
	Del(keys ...string) (int, error)

	// Exists reports whether the key is present.
	Exists(key string) (bool, error)

	// Keys returns all keys of this application matching the pattern.
	// Returned names have the application prefix already stripped.
	Keys(pattern string) ([]string, error)

	// HGet retrieves one field of a hash.
	HGet(key, field string) (string, error)

	// HSet stores one field of a hash and reports whether the field
	// was newly created.
	HSet(key, field, value string) (bool, error)

	// HDel removes fields from a hash and returns the number removed.
	HDel(key string, fields ...string) (int, error)

	// HGetAll returns every field and value of a hash.
	HGetAll(key string) (map[string]string, error)

	// LPush prepends values to a list and returns the new length.
	LPush(key string, values ...string) (int, error)

	// RPush appends values to a list and returns the new length.
	RPush(key string, values ...string) (int, error)

	// LPop removes and returns the first element of a list.
	LPop(key string) (string, error)

	// RPop removes and returns the last element of a list.
	RPop(key string) (string, error)

	// LRange returns the elements in the given index range of a list.
	LRange(key string, start, stop int) ([]string, error)

	// LLen returns the length of a list.
	LLen(key string) (int, error)

	// SAdd adds members to a set and returns the number added.
	SAdd(key string, members ...string) (int, error)

	// SRem removes members from a set and returns the number removed.
	SRem(key string, members ...string) (int, error)

	// SMembers returns every member of a set.
	SMembers(key string) ([]string, error)

	// SIsMember reports whether member is part of the set.
	SIsMember(key, member string) (bool, error)

	// ZAdd adds the given member/score pairs to a sorted set and
	// returns the number of members added.
	ZAdd(key string, members map[string]float64) (int, error)

	// ZRangeWithScores returns the members in the given rank range of
	// a sorted set together with their scores, ordered by score.
	ZRangeWithScores(key string, start, stop int) ([]ScoredMember, error)
}

// ScoredMember is one entry of a sorted-set range response.
type ScoredMember struct {
	Member string
	Score  float64
}
