package internal

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frankli0324/easyhttp/internal/dialer"
	"github.com/frankli0324/easyhttp/internal/model"
	"github.com/frankli0324/easyhttp/internal/transport"
)

type PreparedRequest = model.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*model.Response, error)
type Middleware func(next Handler) Handler

// Client issues requests over fresh connections. The zero value is ready
// to use. A Client must not be reconfigured while requests are in flight.
type Client struct {
	middlewares []Middleware
	dialer      dialer.Dialer
	logger      *slog.Logger
}

var defaultDialer = dialer.Default()

var h1 = transport.HTTP1{}

// Use appends mw to the end of the chain. The first "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer with the one returned by f, which
// receives the current one
func (c *Client) UseDialer(f func(dialer.Dialer) dialer.Dialer) {
	c.dialer = f(c.getDialer())
}

// UseCoreDialer passes a copy of the default *[dialer.CoreDialer] to f for
// configuration, e.g. setting proxies or root CAs
func (c *Client) UseCoreDialer(f func(*dialer.CoreDialer) dialer.Dialer) {
	cd := defaultDialer.Clone()
	cd.Logger = c.logger
	c.dialer = f(cd)
}

// UseLogger sets the logger receiving diagnostics, defaults to [slog.Default]
func (c *Client) UseLogger(l *slog.Logger) {
	c.logger = l
}

func (c *Client) getLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func (c *Client) getDialer() dialer.Dialer {
	if c.dialer != nil {
		return c.dialer
	}
	return defaultDialer
}

func (c *Client) dial(ctx context.Context, req *PreparedRequest) (io.ReadWriteCloser, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	conn, err := c.getDialer().Dial(ctx, req)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(interface{ SetTimeout(time.Duration) }); ok {
		tc.SetTimeout(req.Timeout)
	}
	return conn, nil
}

// roundTrip writes a single request on a fresh connection and reads the
// response head. The connection is owned by the returned response body.
func (c *Client) roundTrip(ctx context.Context, pr *PreparedRequest) (*model.Response, error) {
	conn, err := c.dial(ctx, pr)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if err := h1.Write(conn, pr); err != nil {
		conn.Close()
		return nil, err
	}
	resp := &model.Response{}
	if err := h1.Read(conn, pr, resp); err != nil {
		conn.Close()
		return nil, err
	}
	return resp, nil
}

// CtxDo performs a single exchange without following redirects.
func (c *Client) CtxDo(ctx context.Context, req *model.Request) (*model.Response, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	next := c.roundTrip
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next(ctx, pr)
}
