package dialer

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// Conn is the stream handed out by *[CoreDialer]. It remembers whether it
// has been closed and closes itself on the first read or write error. When
// a timeout is set, every read and write must complete within it.
type Conn struct {
	conn    net.Conn
	closed  atomic.Bool
	timeout time.Duration
	logger  *slog.Logger
}

func NewConn(c net.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{conn: c, logger: logger}
}

// Raw returns the underlying connection
func (c *Conn) Raw() net.Conn {
	return c.conn
}

// SetTimeout bounds each subsequent read and write by d, zero disables it.
func (c *Conn) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Closed reports whether Close has been called, either explicitly or
// after an I/O error
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

func (c *Conn) Write(p []byte) (n int, err error) {
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	n, err = c.conn.Write(p)
	if err != nil {
		if err != io.EOF {
			c.logger.Warn("easyhttp: error on write", "remote", c.remote(), "error", err)
		}
		c.Close()
	}
	return
}

func (c *Conn) Read(p []byte) (n int, err error) {
	if c.timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	n, err = c.conn.Read(p)
	if err != nil {
		if err != io.EOF && !errors.Is(err, net.ErrClosed) {
			c.logger.Warn("easyhttp: error on read", "remote", c.remote(), "error", err)
		}
		c.Close()
	}
	return
}

// Close is idempotent, only the first call reaches the underlying connection
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Conn) remote() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
