package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const maxLineLength = 4096

var (
	ErrMalformed   = errors.New("malformed chunked encoding")
	ErrLineTooLong = errors.New("header line too long")
)

// NewChunkedReader decodes a chunked body (RFC9112 section 7.1). Chunk
// extensions are ignored, trailer fields are read and discarded.
func NewChunkedReader(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{r: br}
}

type chunkedReader struct {
	r         *bufio.Reader
	remaining uint64 // bytes left in the current chunk
	inChunk   bool
	err       error
}

func (c *chunkedReader) readLine() ([]byte, error) {
	line, err := c.r.ReadSlice('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		} else if err == bufio.ErrBufferFull {
			err = ErrLineTooLong
		}
		return nil, err
	}
	if len(line) >= maxLineLength {
		return nil, ErrLineTooLong
	}
	return bytes.TrimRight(line, " \t\r\n"), nil
}

func parseHexUint(v []byte) (n uint64, err error) {
	if len(v) == 0 {
		return 0, errors.New("empty chunk length")
	}
	for i, b := range v {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		if i == 16 {
			return 0, errors.New("http chunk length too large")
		}
		n <<= 4
		n |= uint64(b)
	}
	return
}

func (c *chunkedReader) beginChunk() {
	line, err := c.readLine()
	if err != nil {
		c.err = err
		return
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i] // chunk-ext
	}
	c.remaining, c.err = parseHexUint(bytes.TrimSpace(line))
	if c.err != nil {
		return
	}
	if c.remaining == 0 {
		// last-chunk, drain the trailer section up to the empty line
		for {
			line, err := c.readLine()
			if err != nil {
				c.err = err
				return
			}
			if len(line) == 0 {
				break
			}
		}
		c.err = io.EOF
		return
	}
	c.inChunk = true
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	for c.err == nil && n == 0 && len(p) > 0 {
		if !c.inChunk {
			c.beginChunk()
			continue
		}
		buf := p
		if uint64(len(buf)) > c.remaining {
			buf = buf[:c.remaining]
		}
		var nn int
		nn, c.err = c.r.Read(buf)
		n += nn
		c.remaining -= uint64(nn)
		if c.err == io.EOF {
			c.err = io.ErrUnexpectedEOF
		}
		if c.remaining == 0 && c.err == nil {
			c.inChunk = false
			var crlf [2]byte
			if _, err := io.ReadFull(c.r, crlf[:]); err != nil {
				c.err = io.ErrUnexpectedEOF
			} else if crlf[0] != '\r' || crlf[1] != '\n' {
				c.err = ErrMalformed
			}
		}
	}
	return n, c.err
}
