package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/frankli0324/easyhttp/internal/charset"
	"github.com/frankli0324/easyhttp/internal/model"
)

var (
	// ErrNoBody is returned when decoding the body of a HEAD response
	ErrNoBody = errors.New("response has no body")
	// ErrBodyConsumed is returned when the body was already streamed by Iterate
	ErrBodyConsumed = errors.New("response body already consumed")
)

// RedirectHop is one followed redirect
type RedirectHop struct {
	URL        string
	StatusCode int
	Location   string
}

// Response is the final response of a request. The body is read lazily on
// the first accessor call and cached, accessors are not safe for concurrent
// use.
type Response struct {
	URL        string // final url after redirects
	Method     string
	Proto      string
	Status     string
	StatusCode int
	History    []RedirectHop

	header  http.Header
	cookies map[string]string
	body    io.ReadCloser
	head    bool
	logger  *slog.Logger

	content    []byte
	hasContent bool
	bodyErr    error
	streamed   bool

	text    *string
	textErr error

	json    interface{}
	hasJSON bool
	jsonErr error

	encoding *string
	encErr   error
}

func (r *Response) setHead(hop *model.Response) {
	r.Proto = hop.Proto
	r.Status = hop.Status
	r.StatusCode = hop.StatusCode
	r.header = hop.Header
	r.body = hop.Body
	if r.body == nil {
		r.body = http.NoBody
	}
	r.head = r.Method == http.MethodHead
	extractCookies(hop.Header, r.cookies)
}

// Header returns a copy of the response headers
func (r *Response) Header() http.Header {
	if r.header == nil {
		return http.Header{}
	}
	return r.header.Clone()
}

// Cookies returns the cookies set by every response along the redirect chain
func (r *Response) Cookies() map[string]string {
	out := make(map[string]string, len(r.cookies))
	for k, v := range r.cookies {
		out[k] = v
	}
	return out
}

// Close releases the connection without reading the rest of the body
func (r *Response) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.Close()
}

// Body reads the whole body once and closes the connection. A HEAD response
// has an empty body.
func (r *Response) Body() ([]byte, error) {
	if r.head {
		return nil, nil
	}
	if r.hasContent || r.bodyErr != nil {
		return r.content, r.bodyErr
	}
	if r.streamed {
		return nil, ErrBodyConsumed
	}
	defer r.Close()
	b, err := io.ReadAll(r.body)
	if err != nil {
		r.logger.Warn("easyhttp: failed to read body", "url", r.URL, "error", err)
		r.bodyErr = fmt.Errorf("read body: %w", err)
		return nil, r.bodyErr
	}
	r.content, r.hasContent = b, true
	return b, nil
}

// JSON decodes the body into a generic value, the result is cached
func (r *Response) JSON() (interface{}, error) {
	if r.hasJSON || r.jsonErr != nil {
		return r.json, r.jsonErr
	}
	if r.head {
		r.jsonErr = ErrNoBody
		return nil, r.jsonErr
	}
	b, err := r.Body()
	r.Close()
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		r.logger.Warn("easyhttp: failed to parse JSON", "url", r.URL, "error", err)
		r.jsonErr = fmt.Errorf("decode json: %w", err)
		return nil, r.jsonErr
	}
	r.json, r.hasJSON = v, true
	return v, nil
}

// DecodeJSON unmarshals the body into v
func (r *Response) DecodeJSON(v interface{}) error {
	if r.head {
		return ErrNoBody
	}
	b, err := r.Body()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// Get looks up a gjson path in the body, e.g. "data.items.#.id". The result
// does not exist if the body can't be read.
func (r *Response) Get(path string) gjson.Result {
	b, err := r.Body()
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(b, path)
}

// Encoding returns the canonical name of the body charset. It is resolved
// once, from the Content-Type charset parameter or else by detection over
// the body.
func (r *Response) Encoding() (string, error) {
	if r.encoding != nil || r.encErr != nil {
		return deref(r.encoding), r.encErr
	}
	ct := r.header.Get("Content-Type")
	if label := charset.FromContentType(ct); label != "" {
		if _, name, err := charset.Lookup(label); err == nil {
			r.encoding = &name
			return name, nil
		}
		r.logger.Warn("easyhttp: unknown charset in content-type, detecting instead", "url", r.URL, "charset", label)
	}
	b, err := r.Body()
	if err != nil {
		return "", err
	}
	name, err := charset.Detect(b, ct)
	if err != nil {
		r.logger.Warn("easyhttp: failed to detect encoding", "url", r.URL, "error", err)
		r.encErr = err
		return "", err
	}
	r.encoding = &name
	return name, nil
}

// Text returns the body decoded to UTF-8. A HEAD response has empty text.
func (r *Response) Text() (string, error) {
	if r.head {
		return "", nil
	}
	if r.text != nil || r.textErr != nil {
		return deref(r.text), r.textErr
	}
	b, err := r.Body()
	if err != nil {
		return "", err
	}
	enc, err := r.Encoding()
	if err != nil {
		r.textErr = err
		return "", err
	}
	s, err := charset.Decode(b, enc)
	if err != nil {
		r.logger.Warn("easyhttp: failed to decode text", "url", r.URL, "encoding", enc, "error", err)
		r.textErr = fmt.Errorf("decode %s text: %w", enc, err)
		return "", r.textErr
	}
	r.text = &s
	return s, nil
}

// Iterate streams the body in chunks of at most chunkSize bytes. The
// sequence can be ranged over only once, the connection is closed when it
// ends. A read error is yielded once as the last element. If the body has
// already been read the chunks come from the cached copy.
func (r *Response) Iterate(chunkSize int) iter.Seq2[[]byte, error] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		if r.head {
			return
		}
		if r.hasContent {
			for off := 0; off < len(r.content); off += chunkSize {
				end := min(off+chunkSize, len(r.content))
				if !yield(r.content[off:end:end], nil) {
					return
				}
			}
			return
		}
		if r.bodyErr != nil || r.streamed {
			err := r.bodyErr
			if err == nil {
				err = ErrBodyConsumed
			}
			yield(nil, err)
			return
		}
		r.streamed = true
		defer r.Close()
		for {
			buf := make([]byte, chunkSize)
			n, err := fill(r.body, buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				r.logger.Warn("easyhttp: error while iterating body", "url", r.URL, "error", err)
				yield(nil, fmt.Errorf("read body: %w", err))
				return
			}
		}
	}
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// fill reads into buf until it is full or the reader fails, unlike
// [io.ReadFull] the reader's error is passed through untouched
func fill(r io.Reader, buf []byte) (n int, err error) {
	for n < len(buf) && err == nil {
		var nn int
		nn, err = r.Read(buf[n:])
		n += nn
	}
	return
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
