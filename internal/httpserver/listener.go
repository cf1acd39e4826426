package httpserver

import (
	"net"
	"sync"
	"time"
)

// idleListener hands out connections whose deadline is pushed forward on
// every read and write, so only a connection that stalls for the whole
// timeout is aborted.
type idleListener struct {
	net.Listener
	timeout time.Duration
}

func (l *idleListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &idleConn{Conn: c, timeout: l.timeout}, nil
}

// idleConn leaves a deadline in the past alone: net/http sets one to abort
// its background read, and extending it would keep the connection busy.
type idleConn struct {
	net.Conn
	timeout time.Duration

	mu      sync.Mutex
	expired bool
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.extend(); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if err := c.extend(); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

func (c *idleConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expired = isPast(t)
	return c.Conn.SetDeadline(t)
}

func (c *idleConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expired = isPast(t)
	return c.Conn.SetReadDeadline(t)
}

func (c *idleConn) extend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired {
		return nil
	}
	return c.Conn.SetDeadline(time.Now().Add(c.timeout))
}

func isPast(t time.Time) bool {
	return !t.IsZero() && !t.After(time.Now())
}
