package sentra

import (
	"errors"
	"io"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/efritz/sentra/iface"
)

type (
	// Conn abstracts a single, feature-minimal connection to one
	// resolved endpoint.
	Conn = iface.Conn

	redigoShim struct {
		conn redis.Conn
	}

	connErr struct{ error }

	// DialFunc creates a connection to the given host:port address or
	// returns an error.
	DialFunc func(addr string) (Conn, error)
)

func makeDialer(config *clientConfig) DialFunc {
	return func(addr string) (Conn, error) {
		conn, err := redis.Dial(
			"tcp",
			addr,
			redis.DialPassword(config.password),
			redis.DialDatabase(config.database),
			redis.DialConnectTimeout(config.connectTimeout),
			redis.DialReadTimeout(config.readTimeout),
			redis.DialWriteTimeout(config.writeTimeout),
		)

		if err != nil {
			return nil, err
		}

		return &redigoShim{conn}, nil
	}
}

// makeSentinelDialer dials the control channel. Sentinels hold no
// keyspace, so no database is selected, and the read timeout bounds
// how long a quorum query may block.
func makeSentinelDialer(password string, timeout time.Duration) DialFunc {
	return func(addr string) (Conn, error) {
		conn, err := redis.Dial(
			"tcp",
			addr,
			redis.DialPassword(password),
			redis.DialConnectTimeout(timeout),
			redis.DialReadTimeout(timeout),
			redis.DialWriteTimeout(timeout),
		)

		if err != nil {
			return nil, err
		}

		return &redigoShim{conn}, nil
	}
}

func (s *redigoShim) Close() error {
	return s.conn.Close()
}

func (s *redigoShim) Do(command string, args ...interface{}) (interface{}, error) {
	result, err := s.conn.Do(command, args...)
	return result, s.wrapError(err)
}

func (s *redigoShim) Send(command string, args ...interface{}) error {
	return s.wrapError(s.conn.Send(command, args...))
}

func (s *redigoShim) wrapError(err error) error {
	// If there's an error on the connection, wrap it and return that
	// so we can flag the retry loop in the client to retry instead of
	// returning the error on this attempt.

	if s.conn.Err() != nil {
		return connErr{s.conn.Err()}
	}

	return err
}

// Given an error, determine if the underlying connection is dead and
// the operation should be re-invoked on a fresh connection to a
// freshly resolved endpoint.
func isConnError(err error) bool {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}

	var ce connErr
	return errors.As(err, &ce)
}
