package dialer

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/url"

	"github.com/frankli0324/easyhttp/internal/model"
)

var schemes = map[string]string{
	"http": "80", "https": "443", "socks": "1080", "socks5": "1080", "socks5h": "1080",
}

var zeroDialer net.Dialer
var customDnsDialer = net.Dialer{
	Resolver: &customServerResolver,
}

// hostPort splits the url host into address and port, filling in the
// default port of the scheme
func hostPort(u *url.URL) (addr, port string) {
	addr, port = u.Host, schemes[u.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}
	return
}

// Dial opens a fresh connection for every request, the returned stream is
// a *[Conn] which closes the underlying socket when closed.
func (d *CoreDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	conn, err := d.tryDialProxy(ctx, r)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		if conn, err = d.dialDirect(ctx, r.U); err != nil {
			return nil, err
		}
	}
	if r.U.Scheme == "https" {
		c, err := d.handshake(ctx, conn, r.U.Hostname(), d.TLSConfig)
		if err != nil {
			return nil, err
		}
		conn = c
	}
	return NewConn(conn, d.logger()), nil
}

func (d *CoreDialer) dialDirect(ctx context.Context, u *url.URL) (net.Conn, error) {
	addr, port := hostPort(u)
	// as of now net.Dialer could handle current DNS configurations
	network, dialer, dialctx := d.ResolveConfig.tcpNetwork(), &zeroDialer, ctx
	dst := net.JoinHostPort(addr, port)
	if static, ok := d.ResolveConfig.staticHost(addr); ok {
		dst = net.JoinHostPort(static, port)
	}
	if d.ResolveConfig != nil && d.ResolveConfig.CustomDNSServer != "" {
		dialctx = dnsServerCtx{dialctx, d.ResolveConfig.CustomDNSServer}
		dialer = &customDnsDialer
	}
	return dialer.DialContext(dialctx, network, dst)
}

// handshake upgrades conn to TLS, only http/1.1 is offered through ALPN.
// conn is closed if the handshake fails
func (d *CoreDialer) handshake(ctx context.Context, conn net.Conn, serverName string, cfg *tls.Config) (*tls.Conn, error) {
	config := cfg.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = serverName
	}
	config.NextProtos = []string{"http/1.1"}
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}
