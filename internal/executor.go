package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/frankli0324/easyhttp/internal/model"
)

func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, opts...)
}

func (c *Client) Post(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, rawURL, opts...)
}

// Head never reads the response body, the connection is closed as soon as
// the headers arrive.
func (c *Client) Head(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodHead, rawURL, opts...)
}

// Do sends the request and follows up to MaxRedirects Location hops,
// replaying method, headers, body and cookies unchanged on each of them. When
// the budget runs out the last redirect response is returned as is.
func (c *Client) Do(ctx context.Context, method, rawURL string, opts ...RequestOption) (*Response, error) {
	o := newRequestOptions(method, rawURL, opts)
	header, body, err := o.build()
	if err != nil {
		return nil, err
	}
	log := c.getLogger()
	resp := &Response{
		Method:  o.Method,
		cookies: map[string]string{},
		logger:  log,
	}

	target := o.URL
	for budget := o.MaxRedirects; ; budget-- {
		hop, err := c.CtxDo(ctx, &model.Request{
			Method: o.Method, URL: target,
			Header: header, Body: body,
			Timeout: o.Timeout,
		})
		if err != nil {
			log.Warn("easyhttp: request failed", "method", o.Method, "url", target, "error", err)
			return nil, fmt.Errorf("%s %s: %w", o.Method, target, err)
		}
		resp.URL = target
		resp.setHead(hop)

		loc := hop.Header.Get("Location")
		if hop.StatusCode < 300 || hop.StatusCode >= 400 || loc == "" || budget <= 0 {
			break
		}
		if !replayable(body) {
			log.Warn("easyhttp: not following redirect, request body can't be replayed", "url", target, "location", loc)
			break
		}
		next, err := resolveLocation(target, loc)
		if err != nil {
			log.Warn("easyhttp: not following redirect, bad location", "url", target, "location", loc, "error", err)
			break
		}
		hop.Body.Close()
		resp.History = append(resp.History, RedirectHop{URL: target, StatusCode: hop.StatusCode, Location: loc})
		log.Debug("easyhttp: following redirect", "status", hop.StatusCode, "from", target, "to", next, "remaining", budget-1)
		target = next
	}

	if resp.head {
		resp.body.Close()
	}
	return resp, nil
}

// resolveLocation resolves a possibly relative Location against the url
// that produced it
func resolveLocation(base, loc string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u, err := b.Parse(strings.TrimSpace(loc))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
