package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"

	"github.com/frankli0324/easyhttp/internal/model"
	"github.com/frankli0324/easyhttp/internal/transport"
)

type ProxyConfig struct {
	TLSConfig *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	// ResolveLocally resolves the remote host before handing it to an http
	// proxy. socks and socks5 proxies always get a resolved address, socks5h
	// proxies resolve it themselves unless this is set.
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

var (
	h1Transport = transport.HTTP1{}
)

// ProxyURL returns a GetProxy hook that sends every request through the
// same proxy
func ProxyURL(proxy string) func(context.Context, *model.Request) (string, error) {
	return func(context.Context, *model.Request) (string, error) {
		return proxy, nil
	}
}

func (d *CoreDialer) tryDialProxy(ctx context.Context, r *model.PreparedRequest) (net.Conn, error) {
	if d.GetProxy != nil {
		proxy, perr := d.GetProxy(ctx, r.Request)
		if perr != nil {
			return nil, perr
		}
		if proxy != "" {
			proxyU, perr := url.Parse(proxy)
			if perr != nil {
				return nil, perr
			}
			return d.DialContextOverProxy(ctx, r.U, proxyU)
		}
	}
	return nil, nil
}

func (d *CoreDialer) resolveLocally() bool {
	return d.ProxyConfig != nil && d.ProxyConfig.ResolveLocally
}

// remoteAddr returns the address the proxy should connect to, resolving the
// remote host on our side if local is set
func (d *CoreDialer) remoteAddr(ctx context.Context, remote *url.URL, local bool) (string, error) {
	addr, port := hostPort(remote)
	if !local {
		return net.JoinHostPort(addr, port), nil
	}
	dnsCfg := d.ResolveConfig
	if d.ProxyConfig != nil {
		dnsCfg = d.ProxyConfig.ResolveConfig.Merge(d.ResolveConfig)
	}
	if res, ok := dnsCfg.staticHost(addr); ok {
		return net.JoinHostPort(res, port), nil
	}
	if net.ParseIP(addr) != nil {
		return net.JoinHostPort(addr, port), nil
	}
	ips, err := d.lookup(ctx, dnsCfg, addr)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no such host", Name: addr, IsNotFound: true}
	}
	return net.JoinHostPort(ips[rand.Intn(len(ips))].String(), port), nil
}

// DialContextOverProxy creates a connection over http/socks proxy.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	switch proxy.Scheme {
	case "http", "https":
		return d.dialHTTPProxy(ctx, remote, proxy)
	case "socks", "socks5", "socks5h":
		return d.dialSOCKS5(ctx, remote, proxy)
	}
	return nil, errors.New("unsupported proxy scheme:" + proxy.Scheme)
}

func (d *CoreDialer) dialSOCKS5(ctx context.Context, remote, proxyU *url.URL) (net.Conn, error) {
	addr, port := hostPort(proxyU)
	var auth *proxy.Auth
	if proxyU.User != nil {
		pass, _ := proxyU.User.Password()
		auth = &proxy.Auth{User: proxyU.User.Username(), Password: pass}
	}
	sd, err := proxy.SOCKS5("tcp", net.JoinHostPort(addr, port), auth, &zeroDialer)
	if err != nil {
		return nil, err
	}
	// only socks5h leaves name resolution to the proxy
	dst, err := d.remoteAddr(ctx, remote, d.resolveLocally() || proxyU.Scheme != "socks5h")
	if err != nil {
		return nil, err
	}
	if cd, ok := sd.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", dst)
	}
	return sd.Dial("tcp", dst)
}

func (d *CoreDialer) dialHTTPProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	addr, port := hostPort(proxy)
	conn, err := zeroDialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
	if err != nil {
		return nil, err
	}

	if proxy.Scheme == "https" {
		tlsCfg := d.TLSConfig
		if d.ProxyConfig != nil && d.ProxyConfig.TLSConfig != nil {
			tlsCfg = d.ProxyConfig.TLSConfig
		}
		c, err := d.handshake(ctx, conn, proxy.Hostname(), tlsCfg)
		if err != nil {
			return nil, err
		}
		conn = c
	}

	dst, err := d.remoteAddr(ctx, remote, d.resolveLocally())
	if err != nil {
		conn.Close()
		return nil, err
	}

	connReq := &model.PreparedRequest{
		Request:       &model.Request{Method: http.MethodConnect},
		HeaderHost:    remote.Host,
		U:             &url.URL{Path: dst},
		GetBody:       func() (io.ReadCloser, error) { return http.NoBody, nil },
		ContentLength: -1,
	}
	if auth := proxy.User.String(); auth != "" {
		connReq.Header = http.Header{
			"Proxy-Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte(auth))},
		}
	}
	if err := h1Transport.Write(conn, connReq); err != nil {
		conn.Close()
		return nil, err
	}
	resp := &model.Response{}
	if err := h1Transport.Read(conn, connReq, resp); err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != 200 {
		s, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		conn.Close()
		return nil, fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s))
	}
	return conn, nil
}
