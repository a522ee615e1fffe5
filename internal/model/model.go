// package model contains the wire level request and response types shared
// by the dialer, the transport and the request executor.
//
// the package also contains some type and value aliases from standard
// library to avoid annoying imports
package model

import (
	"io"
	"net/http"
	"time"
)

type Header = http.Header

var NoBody = http.NoBody

// Request is a single hop as seen by the transport. Body could be one of
// string, []byte, *bytes.Buffer, *bytes.Reader, *strings.Reader or any
// other io.Reader, see [PreparedRequest.updateBody]
type Request struct {
	Method string
	URL    string
	Body   interface{}
	Header http.Header

	// Timeout bounds dialing and every single read or write on the
	// connection, zero means no limit
	Timeout time.Duration
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.ReadCloser
}

// IsHead reports whether the request is a HEAD request, whose response
// never carries a body regardless of its headers.
func (r *Request) IsHead() bool {
	return r.Method == http.MethodHead
}
