package internal_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/frankli0324/easyhttp/internal"
	"github.com/frankli0324/easyhttp/internal/dialer"
	"github.com/frankli0324/easyhttp/internal/model"
)

type CombinedReadWriteCloser struct {
	io.Reader
	io.Writer
	io.Closer
}

type TestDialer struct {
	io.ReadWriteCloser
}

// Dial implements dialer.Dialer.
func (t *TestDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	return t.ReadWriteCloser, nil
}

// Unwrap implements dialer.Dialer.
func (t *TestDialer) Unwrap() dialer.Dialer {
	return nil
}

// SendSingleRequest sends req through a piped connection and returns what
// was written on the wire. The fake server always answers 200 with no body.
func SendSingleRequest(t *testing.T, req *model.Request) io.Reader {
	readResponse, writeResponse := io.Pipe()
	go io.Copy(writeResponse, strings.NewReader("HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))

	readRequest, writeRequest := io.Pipe()
	c := &internal.Client{}
	c.UseDialer(func(dialer.Dialer) dialer.Dialer {
		return &TestDialer{CombinedReadWriteCloser{
			Reader: readResponse,
			Writer: writeRequest,
			Closer: writeRequest,
		}}
	})
	go func() {
		resp, err := c.CtxDo(context.Background(), req)
		if err != nil {
			t.Error(err)
			writeRequest.CloseWithError(err)
			return
		}
		resp.Body.Close()
	}()
	return readRequest
}

// recordingDialer keeps every connection handed out by the wrapped dialer
// so tests can check they were closed.
type recordingDialer struct {
	dialer.Dialer

	mu    sync.Mutex
	conns []*dialer.Conn
}

func (d *recordingDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	c, err := d.Dialer.Dial(ctx, r)
	if conn, ok := c.(*dialer.Conn); ok {
		d.mu.Lock()
		d.conns = append(d.conns, conn)
		d.mu.Unlock()
	}
	return c, err
}

func (d *recordingDialer) Unwrap() dialer.Dialer {
	return d.Dialer
}

func (d *recordingDialer) Conns() []*dialer.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*dialer.Conn(nil), d.conns...)
}

func newRecordingClient() (*internal.Client, *recordingDialer) {
	rd := &recordingDialer{}
	c := &internal.Client{}
	c.UseLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.UseDialer(func(d dialer.Dialer) dialer.Dialer {
		rd.Dialer = d
		return rd
	})
	return c, rd
}
