package sentra

import (
	"errors"
	"io"
	"time"

	"github.com/aphistic/sweet"
	"github.com/efritz/glock"
	. "github.com/onsi/gomega"
)

type PipelineSuite struct{}

func (s *PipelineSuite) TestRun(t sweet.T) {
	var (
		primary = NewMockPool()
		conn    = NewMockConn()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	primary.BorrowFunc = func() (Conn, bool) { return conn, true }

	conn.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		return []interface{}{"OK", int64(1), int64(2)}, nil
	}

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())
	Expect(p.Add("INCR", "b")).To(BeNil())
	Expect(p.Add("DEL", "c", "d")).To(BeNil())

	results, err := p.Run()
	Expect(err).To(BeNil())
	Expect(results).To(Equal([]interface{}{"OK", int64(1), int64(2)}))

	// One MULTI, then the queued commands under the application
	// prefix, then a single blocking EXEC.
	Expect(conn.SendFuncCallParams).To(HaveLen(4))
	Expect(conn.SendFuncCallParams[0].Arg0).To(Equal("MULTI"))
	Expect(conn.SendFuncCallParams[1].Arg0).To(Equal("SET"))
	Expect(conn.SendFuncCallParams[1].Arg1).To(Equal([]interface{}{"myapp:a", "1"}))
	Expect(conn.SendFuncCallParams[2].Arg0).To(Equal("INCR"))
	Expect(conn.SendFuncCallParams[2].Arg1).To(Equal([]interface{}{"myapp:b"}))
	Expect(conn.SendFuncCallParams[3].Arg0).To(Equal("DEL"))
	Expect(conn.SendFuncCallParams[3].Arg1).To(Equal([]interface{}{"myapp:c", "myapp:d"}))
	Expect(conn.DoFuncCallParams).To(HaveLen(1))
	Expect(conn.DoFuncCallParams[0].Arg0).To(Equal("EXEC"))
}

func (s *PipelineSuite) TestRunEmpty(t sweet.T) {
	var (
		primary = NewMockPool()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	results, err := c.WritePipeline().Run()
	Expect(err).To(BeNil())
	Expect(results).To(Equal([]interface{}{}))
	Expect(primary.BorrowFuncCallCount).To(Equal(0))
}

func (s *PipelineSuite) TestReadPipelineRoutesToReplica(t sweet.T) {
	var (
		replica = NewMockPool()
		conn    = NewMockConn()
		c       = makeClient(NewMockPool(), replica, nil)
	)

	replica.BorrowFunc = func() (Conn, bool) { return conn, true }

	conn.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		return []interface{}{[]byte("1")}, nil
	}

	p := c.ReadPipeline()
	Expect(p.Add("GET", "a")).To(BeNil())

	_, err := p.Run()
	Expect(err).To(BeNil())
	Expect(replica.BorrowFuncCallCount).To(Equal(1))
}

func (s *PipelineSuite) TestAddRoleMismatch(t sweet.T) {
	c := makeClient(NewMockPool(), NewMockPool(), nil)

	p := c.ReadPipeline()
	Expect(p.Add("SET", "a", "1")).To(Equal(ErrRoleMismatch))
	Expect(p.Add("GET", "a")).To(BeNil())

	w := c.WritePipeline()
	Expect(w.Add("GET", "a")).To(Equal(ErrRoleMismatch))
	Expect(w.Add("SET", "a", "1")).To(BeNil())
}

func (s *PipelineSuite) TestAddUnknownCommand(t sweet.T) {
	c := makeClient(NewMockPool(), NewMockPool(), nil)

	p := c.WritePipeline()
	Expect(p.Add("EVAL", "return 1", 0)).To(Equal(ErrUnknownCommand))
}

func (s *PipelineSuite) TestClosedAfterRun(t sweet.T) {
	var (
		primary = NewMockPool()
		conn    = NewMockConn()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	primary.BorrowFunc = func() (Conn, bool) { return conn, true }

	conn.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		return []interface{}{"OK"}, nil
	}

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())

	_, err := p.Run()
	Expect(err).To(BeNil())

	Expect(p.Add("SET", "b", "2")).To(Equal(ErrPipelineClosed))
	_, err = p.Run()
	Expect(err).To(Equal(ErrPipelineClosed))
}

func (s *PipelineSuite) TestDiscard(t sweet.T) {
	var (
		primary = NewMockPool()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())
	p.Discard()

	Expect(p.Add("SET", "b", "2")).To(Equal(ErrPipelineClosed))
	_, err := p.Run()
	Expect(err).To(Equal(ErrPipelineClosed))
	Expect(primary.BorrowFuncCallCount).To(Equal(0))
}

func (s *PipelineSuite) TestSendErrorFailsBatch(t sweet.T) {
	var (
		primary  = NewMockPool()
		conn     = NewMockConn()
		released = make(chan Conn, 1)
		c        = makeClient(primary, NewMockPool(), nil)
	)

	defer close(released)

	primary.BorrowFunc = func() (Conn, bool) { return conn, true }
	primary.ReleaseFunc = func(conn Conn) { released <- conn }

	conn.SendFunc = func(command string, args ...interface{}) error {
		if command == "INCR" {
			return errors.New("utoh")
		}

		return nil
	}

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())
	Expect(p.Add("INCR", "b")).To(BeNil())

	_, err := p.Run()
	Expect(err).To(MatchError("utoh"))

	// A connection with a half-sent batch never returns to the pool
	Expect(conn.CloseFuncCallCount).To(Equal(1))
	Expect(released).To(Receive(BeNil()))
}

func (s *PipelineSuite) TestRetryBeforeFlush(t sweet.T) {
	var (
		primary     = NewMockPool()
		conn1       = NewMockConn()
		conn2       = NewMockConn()
		clock       = glock.NewMockClock()
		borrowCount = 0
		c           = makeClient(primary, NewMockPool(), clock)
	)

	primary.BorrowFunc = func() (Conn, bool) {
		c := []Conn{conn1, conn2}[borrowCount]
		borrowCount++
		return c, true
	}

	conn1.SendFunc = func(command string, args ...interface{}) error {
		return connErr{io.EOF}
	}

	conn2.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		return []interface{}{"OK"}, nil
	}

	go func() {
		// Unlock the after call in client
		clock.BlockingAdvance(time.Second)
	}()

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())

	results, err := p.Run()
	Expect(err).To(BeNil())
	Expect(results).To(Equal([]interface{}{"OK"}))
	Expect(primary.InvalidateFuncCallCount).To(Equal(1))
	Expect(conn2.SendFuncCallCount).To(Equal(2))
}

func (s *PipelineSuite) TestNoRetryAfterFlush(t sweet.T) {
	var (
		primary = NewMockPool()
		conn    = NewMockConn()
		c       = makeClient(primary, NewMockPool(), glock.NewMockClock())
	)

	primary.BorrowFunc = func() (Conn, bool) { return conn, true }

	conn.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		// EXEC reached the wire but its response never came back
		return nil, connErr{io.EOF}
	}

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())

	var connectionErr *ConnectionError
	_, err := p.Run()
	Expect(errors.As(err, &connectionErr)).To(BeTrue())

	// The batch may already have been applied - reissuing it could
	// apply it twice, so the failure surfaces after a single attempt.
	Expect(primary.BorrowFuncCallCount).To(Equal(1))
	Expect(primary.InvalidateFuncCallCount).To(Equal(0))
	Expect(conn.CloseFuncCallCount).To(Equal(1))
}

func (s *PipelineSuite) TestNoConnection(t sweet.T) {
	var (
		primary = NewMockPool()
		clock   = glock.NewMockClock()
		c       = makeClient(primary, NewMockPool(), clock)
	)

	primary.BorrowFunc = func() (Conn, bool) { return nil, false }

	go func() {
		clock.BlockingAdvance(time.Second)
	}()

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())

	_, err := p.Run()
	Expect(errors.Is(err, ErrNoConnection)).To(BeTrue())
}

func (s *PipelineSuite) TestMismatchedResponse(t sweet.T) {
	var (
		primary = NewMockPool()
		conn    = NewMockConn()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	primary.BorrowFunc = func() (Conn, bool) { return conn, true }

	conn.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		return []interface{}{"OK"}, nil
	}

	p := c.WritePipeline()
	Expect(p.Add("SET", "a", "1")).To(BeNil())
	Expect(p.Add("SET", "b", "2")).To(BeNil())

	var connectionErr *ConnectionError
	_, err := p.Run()
	Expect(errors.As(err, &connectionErr)).To(BeTrue())
}

func (s *PipelineSuite) TestWithWritePipeline(t sweet.T) {
	var (
		primary = NewMockPool()
		conn    = NewMockConn()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	primary.BorrowFunc = func() (Conn, bool) { return conn, true }

	conn.DoFunc = func(command string, args ...interface{}) (interface{}, error) {
		return []interface{}{"OK", int64(1)}, nil
	}

	results, err := c.WithWritePipeline(func(p Pipeline) error {
		if err := p.Add("SET", "a", "1"); err != nil {
			return err
		}

		return p.Add("INCR", "b")
	})

	Expect(err).To(BeNil())
	Expect(results).To(Equal([]interface{}{"OK", int64(1)}))
}

func (s *PipelineSuite) TestWithWritePipelineError(t sweet.T) {
	var (
		primary = NewMockPool()
		c       = makeClient(primary, NewMockPool(), nil)
	)

	_, err := c.WithWritePipeline(func(p Pipeline) error {
		if err := p.Add("SET", "a", "1"); err != nil {
			return err
		}

		return errors.New("utoh")
	})

	// Nothing was flushed to the remote server
	Expect(err).To(MatchError("utoh"))
	Expect(primary.BorrowFuncCallCount).To(Equal(0))
}
