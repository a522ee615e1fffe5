package dialer

import (
	"github.com/frankli0324/easyhttp/internal/dialer"
)

// Dialers are responsible for creating underlying streams that http requests could
// be written to and responses could be read from. for example, opening a raw TCP
// connection for HTTP/1.1 requests.
//
// A Dialer MUST NOT hold active connection states, every request gets a
// connection of its own that is closed once the response is consumed. Like
// [net/http.Transport], it SHOULD hold the connection related configs like
// [ProxyConfig] or *[crypto/tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It would
// be used by a zero value Client.
type CoreDialer = dialer.CoreDialer

// Conn is the stream returned by *[CoreDialer]
type Conn = dialer.Conn

// ProxyConfig configures proxies returned by [CoreDialer.GetProxy]. http,
// https, socks5 and socks5h proxy urls are supported.
type ProxyConfig = dialer.ProxyConfig

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library didn't provide a intuitive way of
// setting DNS server addresses since it only follows the
// system configuration (e.g. /etc/resolv.conf), leaving us only
// one option of using [net.Resolver.Dial] hook with a Go Resolver.
//
// this part of code tries to take advantage of that
// only option as far as possible to provide a relativly
// intuitive configuration API.
type ResolveConfig = dialer.ResolveConfig

var (
	Default  = dialer.Default
	ProxyURL = dialer.ProxyURL
)
