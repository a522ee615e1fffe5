package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds dialing and each read or write of a request
	DefaultTimeout = 5 * time.Second
	// DefaultMaxRedirects is the number of Location hops followed
	DefaultMaxRedirects = 5
	// DefaultChunkSize is used by [Response.Iterate] for non-positive sizes
	DefaultChunkSize = 1024
	// DefaultUserAgent is sent when the caller supplies no headers at all
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0"
)

// RequestOptions holds everything needed to issue a request and replay
// it on every redirect hop.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string // empty means "no headers given", see [DefaultUserAgent]
	Form    map[string]string
	JSON    interface{}
	Body    interface{}
	Cookies map[string]string

	Timeout      time.Duration
	MaxRedirects int

	hasJSON bool
}

type RequestOption func(*RequestOptions)

func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = map[string]string{}
		}
		o.Headers[key] = value
	}
}

// WithHeaders merges headers into the request headers. An empty map counts
// as no headers, the default User-Agent is still sent.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithForm sends form url-encoded, ignored if a JSON payload is set
func WithForm(form map[string]string) RequestOption {
	return func(o *RequestOptions) {
		o.Form = form
	}
}

// WithJSON sends v serialized as JSON. It takes precedence over any form or
// raw body. a nil v is sent as the JSON literal null.
func WithJSON(v interface{}) RequestOption {
	return func(o *RequestOptions) {
		o.JSON = v
		o.hasJSON = true
	}
}

// WithBody sends a raw body, see [model.Request] for the accepted types.
// Readers without a known size are sent chunked and can't be replayed on
// redirects.
func WithBody(body interface{}) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
	}
}

func WithCookies(cookies map[string]string) RequestOption {
	return func(o *RequestOptions) {
		if o.Cookies == nil {
			o.Cookies = make(map[string]string, len(cookies))
		}
		for k, v := range cookies {
			o.Cookies[k] = v
		}
	}
}

func WithTimeout(d time.Duration) RequestOption {
	return func(o *RequestOptions) {
		o.Timeout = d
	}
}

// WithMaxRedirects sets the redirect budget, zero disables following.
func WithMaxRedirects(n int) RequestOption {
	return func(o *RequestOptions) {
		if n < 0 {
			n = 0
		}
		o.MaxRedirects = n
	}
}

func newRequestOptions(method, rawURL string, opts []RequestOption) *RequestOptions {
	o := &RequestOptions{
		Method:       strings.ToUpper(method),
		URL:          rawURL,
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// setHeader replaces every case-insensitive match of key, user supplied
// header names are otherwise kept as is
func setHeader(h http.Header, key, value string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
	h[key] = []string{value}
}

func hasHeader(h http.Header, key string) bool {
	for k := range h {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// cookieHeader joins cookies into a single Cookie header value
func cookieHeader(cookies map[string]string) string {
	keys := make([]string, 0, len(cookies))
	for k := range cookies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+cookies[k])
	}
	return strings.Join(pairs, "; ")
}

// build produces the header and body sent on every hop
func (o *RequestOptions) build() (http.Header, interface{}, error) {
	header := make(http.Header, len(o.Headers)+3)
	if len(o.Headers) == 0 {
		header["User-Agent"] = []string{DefaultUserAgent}
	}
	for k, v := range o.Headers {
		header[k] = []string{v}
	}
	if len(o.Cookies) > 0 {
		setHeader(header, "Cookie", cookieHeader(o.Cookies))
	}
	if !hasHeader(header, "Connection") {
		header["Connection"] = []string{"close"}
	}

	body := o.Body
	switch {
	case o.hasJSON:
		b, err := json.Marshal(o.JSON)
		if err != nil {
			return nil, nil, fmt.Errorf("encode json body: %w", err)
		}
		body = b
		setHeader(header, "Content-Type", "application/json")
	case o.Form != nil:
		form := make(url.Values, len(o.Form))
		for k, v := range o.Form {
			form.Set(k, v)
		}
		body = form.Encode()
		setHeader(header, "Content-Type", "application/x-www-form-urlencoded")
	}
	return header, body, nil
}

// replayable reports whether body can be sent again on a redirect hop
func replayable(body interface{}) bool {
	switch body.(type) {
	case nil, string, []byte, *bytes.Buffer, *bytes.Reader, *strings.Reader:
		return true
	}
	return false
}
