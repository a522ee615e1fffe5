package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	"github.com/frankli0324/easyhttp/internal/model"
	"github.com/frankli0324/easyhttp/internal/transport/chunked"
)

type bodyCloser struct {
	io.Reader
	close func() error
}

func (b bodyCloser) Close() error { return b.close() }

// lengthReader reads exactly n bytes, a connection that ends before that
// yields io.ErrUnexpectedEOF instead of io.EOF
type lengthReader struct {
	r io.Reader
	n int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if err == io.EOF && l.n > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// HTTP1 writes requests and reads responses in HTTP/1.1 message syntax
// (RFC9112). It holds no state, a connection is expected to carry exactly
// one exchange.
type HTTP1 struct{}

func (t HTTP1) Write(w io.Writer, r *model.PreparedRequest) error {
	body, err := r.GetBody() // can write body
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}
	hasBody := body != nil && body != http.NoBody
	chunkedBody := hasBody && r.ContentLength == -1

	bw := bufio.NewWriter(w) // default bufsize is 4096
	if err := t.writeHeader(bw, r, chunkedBody); err != nil {
		return err
	}
	if hasBody {
		if chunkedBody {
			cw := chunked.NewChunkedWriter(bw)
			if _, err := io.Copy(cw, body); err != nil {
				return err
			}
			if err := cw.CloseWithTrailer(nil); err != nil {
				return err
			}
		} else if _, err := io.Copy(bw, body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeHeader writes the status and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
//
// user headers are written in sorted order and are NOT canonicalized.
func (t HTTP1) writeHeader(header *bufio.Writer, r *model.PreparedRequest, chunkedBody bool) error {
	if _, err := header.WriteString(r.Method); err != nil {
		return err
	}
	header.WriteByte(' ')
	if r.Method == http.MethodConnect {
		header.WriteString(r.U.Path)
	} else {
		header.WriteString(r.U.RequestURI())
	}
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if chunkedBody {
		header.WriteString("Transfer-Encoding: chunked\r\n")
	} else if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	}
	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Header[k] {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			if _, err := header.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	_, err := header.WriteString("\r\n")
	return err
}

func (t HTTP1) Read(r io.Reader, req *model.PreparedRequest, resp *model.Response) (err error) {
	closer := io.NopCloser
	if cr, ok := r.(io.Closer); ok {
		closer = func(r io.Reader) io.ReadCloser { return bodyCloser{r, cr.Close} }
	}
	tp := textproto.NewReader(bufio.NewReader(r))

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return errors.New("malformed HTTP response")
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errors.New("malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return errors.New("malformed HTTP status code")
	}

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)

	return t.readTransfer(tp.R, req, resp, closer)
}

// noResponseBody reports whether the message is defined to have no body,
// RFC9112 section 6.3
func noResponseBody(req *model.PreparedRequest, code int) bool {
	return (req != nil && req.IsHead()) || (code >= 100 && code < 200) ||
		code == http.StatusNoContent || code == http.StatusNotModified
}

func (t HTTP1) readTransfer(r io.Reader, req *model.PreparedRequest, resp *model.Response, closer func(io.Reader) io.ReadCloser) error {
	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		// Logic based on Content-Length
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err == nil {
			cl = int64(n)
		}
	}
	resp.ContentLength = cl

	if req != nil && req.Method == http.MethodConnect && resp.StatusCode/100 == 2 {
		resp.Body = http.NoBody // the connection is now a tunnel, keep it open
		return nil
	}
	if noResponseBody(req, resp.StatusCode) {
		closer(nil).Close()
		resp.Body = http.NoBody
		return nil
	}

	if isChunked(resp.Header.Get("Transfer-Encoding")) {
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Body = closer(chunked.NewChunkedReader(r))
		return nil
	}

	switch {
	case cl > 0:
		resp.Body = closer(&lengthReader{r: r, n: cl})
	case cl == 0:
		closer(nil).Close()
		resp.Body = http.NoBody
	default: // read until the server closes the connection
		resp.Body = closer(r)
	}
	return nil
}

// isChunked reports whether chunked is the final transfer coding
func isChunked(te string) bool {
	if te == "" {
		return false
	}
	codings := strings.Split(te, ",")
	return strings.EqualFold(textproto.TrimString(codings[len(codings)-1]), "chunked")
}
