package dialer_test

import (
	"bufio"
	"context"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/easyhttp/internal/dialer"
	"github.com/frankli0324/easyhttp/internal/model"
	"github.com/frankli0324/easyhttp/internal/transport"
)

func hello(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("hello " + r.Host))
}

// exchange dials u with d and returns the response body
func exchange(t *testing.T, d dialer.Dialer, u string) string {
	pr, err := (&model.Request{Method: "GET", URL: u}).Prepare()
	require.NoError(t, err)
	conn, err := d.Dial(context.Background(), pr)
	require.NoError(t, err)
	defer conn.Close()

	h1 := transport.HTTP1{}
	require.NoError(t, h1.Write(conn, pr))
	resp := &model.Response{}
	require.NoError(t, h1.Read(conn, pr, resp))
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestDialTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(hello))
	defer server.Close()

	d := dialer.Default()
	d.TLSConfig.RootCAs = x509.NewCertPool()
	d.TLSConfig.RootCAs.AddCert(server.Certificate())

	host := server.Listener.Addr().String()
	assert.Equal(t, "hello "+host, exchange(t, d, server.URL))
}

func TestDialStaticHost(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(hello))
	defer server.Close()
	_, port, _ := net.SplitHostPort(server.Listener.Addr().String())

	d := dialer.Default()
	d.TLSConfig.RootCAs = x509.NewCertPool()
	d.TLSConfig.RootCAs.AddCert(server.Certificate())
	d.ResolveConfig = &dialer.ResolveConfig{
		StaticHosts: map[string]string{"example.com": "127.0.0.1"},
	}
	// the test certificate is valid for example.com
	assert.Equal(t, "hello example.com:"+port, exchange(t, d, "https://example.com:"+port+"/"))
}

func connectProxy(t *testing.T, allow bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodConnect || !allow {
			http.Error(w, "tunnel refused", http.StatusForbidden)
			return
		}
		dst, err := net.Dial("tcp", r.Host)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		src, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			dst.Close()
			return
		}
		src.Write([]byte("HTTP/1.1 200 Connection established\r\n\r\n"))
		go func() {
			io.Copy(dst, buf.Reader)
			dst.Close()
		}()
		io.Copy(src, dst)
		src.Close()
	}))
}

func TestDialOverHTTPProxy(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(hello))
	defer target.Close()
	proxy := connectProxy(t, true)
	defer proxy.Close()

	d := dialer.Default()
	d.GetProxy = dialer.ProxyURL(proxy.URL)
	host := target.Listener.Addr().String()
	assert.Equal(t, "hello "+host, exchange(t, d, target.URL))
}

// socksProxy is a no-auth SOCKS5 server that reports the requested address
// on the returned channel and always connects to target
func socksProxy(t *testing.T, target string) (string, <-chan string) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	seen := make(chan string, 4)
	handle := func(conn net.Conn) {
		defer conn.Close()
		br := bufio.NewReader(conn)
		greeting := make([]byte, 2)
		if _, err := io.ReadFull(br, greeting); err != nil {
			return
		}
		if _, err := io.ReadFull(br, make([]byte, greeting[1])); err != nil {
			return
		}
		conn.Write([]byte{5, 0})

		req := make([]byte, 4)
		if _, err := io.ReadFull(br, req); err != nil {
			return
		}
		var host []byte
		switch req[3] {
		case 1:
			host = make([]byte, net.IPv4len)
		case 4:
			host = make([]byte, net.IPv6len)
		case 3:
			l, err := br.ReadByte()
			if err != nil {
				return
			}
			host = make([]byte, l)
		}
		port := make([]byte, 2)
		if _, err := io.ReadFull(br, host); err != nil {
			return
		}
		if _, err := io.ReadFull(br, port); err != nil {
			return
		}
		name := string(host)
		if req[3] != 3 {
			name = net.IP(host).String()
		}
		seen <- net.JoinHostPort(name, strconv.Itoa(int(port[0])<<8|int(port[1])))

		dst, err := net.Dial("tcp", target)
		if err != nil {
			conn.Write([]byte{5, 1, 0, 1, 0, 0, 0, 0, 0, 0})
			return
		}
		conn.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0})
		go func() {
			io.Copy(dst, br)
			dst.Close()
		}()
		io.Copy(conn, dst)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().String(), seen
}

func TestDialOverSOCKS5(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(hello))
	defer target.Close()
	_, port, _ := net.SplitHostPort(target.Listener.Addr().String())
	proxyAddr, seen := socksProxy(t, target.Listener.Addr().String())

	for scheme, requested := range map[string]string{
		"socks5":  "127.0.0.1:" + port,    // resolved before reaching the proxy
		"socks5h": "example.test:" + port, // resolved by the proxy
	} {
		t.Run(scheme, func(t *testing.T) {
			d := dialer.Default()
			d.GetProxy = dialer.ProxyURL(scheme + "://" + proxyAddr)
			d.ResolveConfig = &dialer.ResolveConfig{
				StaticHosts: map[string]string{"example.test": "127.0.0.1"},
			}
			assert.Equal(t, "hello example.test:"+port, exchange(t, d, "http://example.test:"+port+"/"))
			assert.Equal(t, requested, <-seen)
		})
	}
}

func TestDialProxyFailures(t *testing.T) {
	proxy := connectProxy(t, false)
	defer proxy.Close()

	pr, err := (&model.Request{Method: "GET", URL: "http://example.com/"}).Prepare()
	require.NoError(t, err)

	d := dialer.Default()
	d.GetProxy = dialer.ProxyURL(proxy.URL)
	_, err = d.Dial(context.Background(), pr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status:403")

	d.GetProxy = dialer.ProxyURL("gopher://127.0.0.1:70")
	_, err = d.Dial(context.Background(), pr)
	assert.ErrorContains(t, err, "unsupported proxy scheme")
}

func TestResolveConfigMerge(t *testing.T) {
	own := &dialer.ResolveConfig{StaticHosts: map[string]string{"a": "1.1.1.1"}}
	fallback := &dialer.ResolveConfig{
		CustomDNSServer: "8.8.8.8:53", Network: "ip4",
		StaticHosts: map[string]string{"a": "2.2.2.2", "b": "3.3.3.3"},
	}
	merged := own.Merge(fallback)
	assert.Equal(t, "8.8.8.8:53", merged.CustomDNSServer)
	assert.Equal(t, "ip4", merged.Network)
	assert.Equal(t, map[string]string{"a": "1.1.1.1", "b": "3.3.3.3"}, merged.StaticHosts)
	assert.Len(t, own.StaticHosts, 1, "merge must not modify the receiver")

	var none *dialer.ResolveConfig
	assert.Equal(t, fallback.StaticHosts, none.Merge(fallback).StaticHosts)
	assert.Nil(t, none.Merge(nil))
}

func TestConnClosesOnEOF(t *testing.T) {
	client, server := net.Pipe()
	conn := dialer.NewConn(client, nil)
	conn.SetTimeout(time.Second)

	go func() {
		server.Write([]byte("ping"))
		server.Close()
	}()
	b, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(b))
	assert.True(t, conn.Closed())
	assert.NoError(t, conn.Close(), "close is idempotent")
}

func TestConnTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	conn := dialer.NewConn(client, nil)
	conn.SetTimeout(20 * time.Millisecond)

	_, err := conn.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.True(t, conn.Closed())
}
