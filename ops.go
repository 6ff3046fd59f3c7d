package sentra

import (
	"strconv"

	"github.com/gomodule/redigo/redis"

	"github.com/efritz/sentra/iface"
)

// ScoredMember is one entry of a sorted-set range response.
type ScoredMember = iface.ScoredMember

// Typed convenience surface over Do. Every method below inherits
// classification-based routing, key namespacing, and the single
// internal retry. Missing values surface redigo's redis.ErrNil.

func (c *client) Get(key string) (string, error) {
	return redis.String(c.Do("GET", key))
}

func (c *client) Set(key, value string) error {
	_, err := c.Do("SET", key, value)
	return err
}

func (c *client) SetNX(key, value string) (bool, error) {
	return redis.Bool(c.Do("SETNX", key, value))
}

func (c *client) Incr(key string) (int64, error) {
	return redis.Int64(c.Do("INCR", key))
}

func (c *client) Del(keys ...string) (int, error) {
	return redis.Int(c.Do("DEL", upcast(keys)...))
}

func (c *client) Exists(key string) (bool, error) {
	return redis.Bool(c.Do("EXISTS", key))
}

func (c *client) Keys(pattern string) ([]string, error) {
	return redis.Strings(c.Do("KEYS", pattern))
}

func (c *client) HGet(key, field string) (string, error) {
	return redis.String(c.Do("HGET", key, field))
}

func (c *client) HSet(key, field, value string) (bool, error) {
	return redis.Bool(c.Do("HSET", key, field, value))
}

func (c *client) HDel(key string, fields ...string) (int, error) {
	return redis.Int(c.Do("HDEL", append([]interface{}{key}, upcast(fields)...)...))
}

func (c *client) HGetAll(key string) (map[string]string, error) {
	return redis.StringMap(c.Do("HGETALL", key))
}

func (c *client) LPush(key string, values ...string) (int, error) {
	return redis.Int(c.Do("LPUSH", append([]interface{}{key}, upcast(values)...)...))
}

func (c *client) RPush(key string, values ...string) (int, error) {
	return redis.Int(c.Do("RPUSH", append([]interface{}{key}, upcast(values)...)...))
}

func (c *client) LPop(key string) (string, error) {
	return redis.String(c.Do("LPOP", key))
}

func (c *client) RPop(key string) (string, error) {
	return redis.String(c.Do("RPOP", key))
}

func (c *client) LRange(key string, start, stop int) ([]string, error) {
	return redis.Strings(c.Do("LRANGE", key, start, stop))
}

func (c *client) LLen(key string) (int, error) {
	return redis.Int(c.Do("LLEN", key))
}

func (c *client) SAdd(key string, members ...string) (int, error) {
	return redis.Int(c.Do("SADD", append([]interface{}{key}, upcast(members)...)...))
}

func (c *client) SRem(key string, members ...string) (int, error) {
	return redis.Int(c.Do("SREM", append([]interface{}{key}, upcast(members)...)...))
}

func (c *client) SMembers(key string) ([]string, error) {
	return redis.Strings(c.Do("SMEMBERS", key))
}

func (c *client) SIsMember(key, member string) (bool, error) {
	return redis.Bool(c.Do("SISMEMBER", key, member))
}

func (c *client) ZAdd(key string, members map[string]float64) (int, error) {
	args := make([]interface{}, 0, len(members)*2+1)
	args = append(args, key)

	for member, score := range members {
		args = append(args, score, member)
	}

	return redis.Int(c.Do("ZADD", args...))
}

func (c *client) ZRangeWithScores(key string, start, stop int) ([]ScoredMember, error) {
	values, err := redis.Strings(c.Do("ZRANGE", key, start, stop, "WITHSCORES"))
	if err != nil {
		return nil, err
	}

	members := make([]ScoredMember, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		score, err := strconv.ParseFloat(values[i+1], 64)
		if err != nil {
			return nil, err
		}

		members = append(members, ScoredMember{Member: values[i], Score: score})
	}

	return members, nil
}

func upcast(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, value := range values {
		args[i] = value
	}

	return args
}
