package dialer

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"

	"github.com/frankli0324/easyhttp/internal/model"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each request, setting resolvers, etc.
type Dialer interface {
	// Dial returns an abstract stream for writing the request and reading responses.
	// the implementation of this stream could be specific to protocols.
	Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use

	GetProxy    func(ctx context.Context, r *model.Request) (string, error)
	ProxyConfig *ProxyConfig

	Logger *slog.Logger // receives connection level diagnostics, defaults to [slog.Default]
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
		Logger:        d.Logger,
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}

func (d *CoreDialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Default returns a new *[CoreDialer] with the settings used by a zero
// value client.
func Default() *CoreDialer {
	return &CoreDialer{
		TLSConfig: &tls.Config{},
		ProxyConfig: &ProxyConfig{
			ResolveLocally: false,
		},
	}
}
