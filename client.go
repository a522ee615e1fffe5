// Package easyhttp is a small convenience HTTP client: GET, POST and HEAD
// with manual redirect following, lazily read JSON and text bodies, cookie
// extraction and charset detection, on top of a plain HTTP/1.1 transport
// that opens one connection per request.
//
//	resp, err := easyhttp.Get(ctx, "https://example.com/api",
//		easyhttp.WithCookies(map[string]string{"session": "x"}))
//	if err != nil {
//		return err
//	}
//	v, err := resp.JSON()
package easyhttp

import (
	"context"
	"net/http"

	"github.com/frankli0324/easyhttp/internal"
	"github.com/frankli0324/easyhttp/internal/charset"
	"github.com/frankli0324/easyhttp/internal/model"
)

type Client = internal.Client
type Header = http.Header
type Request = model.Request
type PreparedRequest = model.PreparedRequest
type RawResponse = model.Response
type Response = internal.Response
type RedirectHop = internal.RedirectHop

type Handler = internal.Handler
type Middleware = internal.Middleware

type RequestOptions = internal.RequestOptions
type RequestOption = internal.RequestOption

const (
	DefaultTimeout      = internal.DefaultTimeout
	DefaultMaxRedirects = internal.DefaultMaxRedirects
	DefaultChunkSize    = internal.DefaultChunkSize
	DefaultUserAgent    = internal.DefaultUserAgent
)

var (
	ErrNoBody         = internal.ErrNoBody
	ErrBodyConsumed   = internal.ErrBodyConsumed
	ErrUnknownCharset = charset.ErrUnknownCharset
)

var (
	WithHeader       = internal.WithHeader
	WithHeaders      = internal.WithHeaders
	WithForm         = internal.WithForm
	WithJSON         = internal.WithJSON
	WithBody         = internal.WithBody
	WithCookies      = internal.WithCookies
	WithTimeout      = internal.WithTimeout
	WithMaxRedirects = internal.WithMaxRedirects
)

// DefaultClient is used by the package level helpers
var DefaultClient = &Client{}

func Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return DefaultClient.Get(ctx, url, opts...)
}

func Post(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return DefaultClient.Post(ctx, url, opts...)
}

func Head(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return DefaultClient.Head(ctx, url, opts...)
}

func Do(ctx context.Context, method, url string, opts ...RequestOption) (*Response, error) {
	return DefaultClient.Do(ctx, method, url, opts...)
}
