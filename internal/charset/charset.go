// Package charset resolves the text encoding of a response body and decodes
// it to UTF-8.
//
// An explicit charset parameter on the Content-Type header always wins and is
// taken literally, as registered with IANA. When
// there is none, the body is run through a statistical detector; the WHATWG
// prescan of [charset.DetermineEncoding] (BOM, <meta> tags, UTF-8 validity)
// is the last resort.
package charset

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

var ErrUnknownCharset = errors.New("unknown charset")

// minConfidence is the lowest chardet confidence (0-100) accepted without
// falling back to the prescan
const minConfidence = 10

// FromContentType returns the lower-cased charset parameter of a
// Content-Type header value, or "" if there is none.
func FromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(strings.TrimSpace(params["charset"]))
	}
	// malformed media types still often carry a usable charset
	lower := strings.ToLower(contentType)
	i := strings.Index(lower, "charset=")
	if i == -1 {
		return ""
	}
	v := lower[i+len("charset="):]
	if j := strings.IndexByte(v, ';'); j != -1 {
		v = v[:j]
	}
	return strings.Trim(strings.TrimSpace(v), `"'`)
}

// Lookup returns the encoding for a charset label and its lower-cased
// canonical name. Labels are resolved through the IANA registry so a
// declared iso-8859-1 stays iso-8859-1; the WHATWG table, which folds
// latin1 into windows-1252, only serves labels IANA doesn't know.
func Lookup(label string) (encoding.Encoding, string, error) {
	label = strings.TrimSpace(label)
	if e, err := ianaindex.IANA.Encoding(label); err == nil && e != nil {
		name, err := ianaindex.IANA.Name(e)
		if err != nil {
			name = label
		}
		return e, strings.ToLower(name), nil
	}
	if e, name := charset.Lookup(label); e != nil {
		return e, name, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownCharset, label)
}

// Detect guesses the charset label of body. contentType is only consulted
// for the media type, it is expected to carry no charset parameter.
func Detect(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "utf-8", nil
	}
	detector := chardet.NewTextDetector()
	if isHTML(contentType) {
		detector = chardet.NewHtmlDetector()
	}
	res, err := detector.DetectBest(body)
	if err == nil && res.Confidence >= minConfidence {
		if _, name, lerr := Lookup(res.Charset); lerr == nil {
			return name, nil
		}
	}
	_, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "" {
		if err == nil {
			err = ErrUnknownCharset
		}
		return "", err
	}
	return name, nil
}

// Decode converts body from the named charset into a UTF-8 string.
func Decode(body []byte, label string) (string, error) {
	e, _, err := Lookup(label)
	if err != nil {
		return "", err
	}
	out, err := e.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
