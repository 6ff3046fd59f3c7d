package sentra

import (
	"fmt"
	"strings"
)

// namespaceDelimiter separates the application prefix from the key
// proper. Stripping a wrapped key always yields the original key.
const namespaceDelimiter = ":"

// keyspace rewrites the key-bearing positions of commands and results
// so that applications sharing a replica set cannot observe each
// other's keys. Values are never rewritten.
type keyspace struct {
	prefix string
}

func newKeyspace(appPrefix string) *keyspace {
	return &keyspace{prefix: appPrefix + namespaceDelimiter}
}

func (k *keyspace) wrap(key string) string {
	return k.prefix + key
}

// strip removes the application prefix from a key name. Names that do
// not carry the prefix are returned unchanged so that a round trip is
// always the identity.
func (k *keyspace) strip(key string) string {
	return strings.TrimPrefix(key, k.prefix)
}

// wrapArgs returns a copy of args with the key-bearing positions of
// the command rewritten under the application prefix. The positions
// are dictated by the command's entry in the classification table.
func (k *keyspace) wrapArgs(info commandInfo, args []interface{}) []interface{} {
	if info.keys == keysNone || len(args) == 0 {
		return args
	}

	wrapped := make([]interface{}, len(args))
	copy(wrapped, args)

	switch info.keys {
	case keysFirst, keysPattern:
		wrapped[0] = k.wrapArg(args[0])

	case keysFirstTwo:
		wrapped[0] = k.wrapArg(args[0])
		if len(args) > 1 {
			wrapped[1] = k.wrapArg(args[1])
		}

	case keysAll:
		for i := range args {
			wrapped[i] = k.wrapArg(args[i])
		}

	case keysAlternating:
		for i := 0; i < len(args); i += 2 {
			wrapped[i] = k.wrapArg(args[i])
		}

	case keysMatchOption:
		for i := 0; i < len(args)-1; i++ {
			if isMatchToken(args[i]) {
				wrapped[i+1] = k.wrapArg(args[i+1])
			}
		}
	}

	return wrapped
}

// The MATCH token arrives as a string or a byte slice, same as key
// arguments.
func isMatchToken(arg interface{}) bool {
	switch v := arg.(type) {
	case string:
		return strings.EqualFold(v, "MATCH")
	case []byte:
		return strings.EqualFold(string(v), "MATCH")
	}

	return false
}

// wrapArg canonicalizes a key argument to a string at the API boundary
// and prefixes it. Keys arrive as strings or byte slices; anything
// else is formatted the way the underlying library would send it.
func (k *keyspace) wrapArg(arg interface{}) interface{} {
	switch v := arg.(type) {
	case string:
		return k.wrap(v)
	case []byte:
		return k.wrap(string(v))
	default:
		return k.wrap(fmt.Sprintf("%v", v))
	}
}

// unwrapResult rewrites key names appearing in a structured result,
// symmetric to the rewrite applied to arguments before dispatch.
func (k *keyspace) unwrapResult(info commandInfo, result interface{}) interface{} {
	switch info.result {
	case resultKey:
		return k.stripReply(result)

	case resultKeyList:
		return k.stripReplyList(result)

	case resultScanPage:
		page, ok := result.([]interface{})
		if !ok || len(page) != 2 {
			return result
		}

		return []interface{}{page[0], k.stripReplyList(page[1])}
	}

	return result
}

// Replies surface key names as byte slices. Preserve the reply's
// representation when stripping so callers can keep applying the
// redigo reply converters to routed results.
func (k *keyspace) stripReply(reply interface{}) interface{} {
	switch v := reply.(type) {
	case []byte:
		return []byte(k.strip(string(v)))
	case string:
		return k.strip(v)
	}

	return reply
}

func (k *keyspace) stripReplyList(reply interface{}) interface{} {
	list, ok := reply.([]interface{})
	if !ok {
		return reply
	}

	stripped := make([]interface{}, len(list))
	for i, entry := range list {
		stripped[i] = k.stripReply(entry)
	}

	return stripped
}
