package charset_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/easyhttp/internal/charset"
)

func TestFromContentType(t *testing.T) {
	for ct, want := range map[string]string{
		"":                                   "",
		"application/json":                   "",
		"text/html; charset=UTF-8":           "utf-8",
		"text/html; Charset=\"ISO-8859-1\"":  "iso-8859-1",
		"text/plain;charset=gbk;format=flow": "gbk",
		"text/html;;charset=shift_jis":       "shift_jis", // not a valid media type
	} {
		assert.Equal(t, want, charset.FromContentType(ct), ct)
	}
}

func TestLookup(t *testing.T) {
	for label, want := range map[string]string{
		"ISO-8859-1":   "iso-8859-1",
		"latin1":       "iso-8859-1",
		"windows-1252": "windows-1252",
		"UTF-8":        "utf-8",
		"Shift_JIS":    "shift_jis",
	} {
		_, name, err := charset.Lookup(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, name, label)
	}

	_, _, err := charset.Lookup("no-such-charset")
	assert.ErrorIs(t, err, charset.ErrUnknownCharset)
}

func TestDecode(t *testing.T) {
	s, err := charset.Decode([]byte("caf\xe9"), "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "café", s)

	// C1 controls are kept, windows-1252 would map them onto printable runes
	s, err = charset.Decode([]byte("a\x80b\x9fc"), "ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "a\u0080b\u009fc", s)

	s, err = charset.Decode([]byte("a\x80b"), "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "a€b", s)

	s, err = charset.Decode([]byte("\x82\xb1\x82\xf1\x82\xc9\x82\xbf\x82\xcd"), "shift_jis")
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", s)

	_, err = charset.Decode([]byte("x"), "klingon")
	assert.ErrorIs(t, err, charset.ErrUnknownCharset)
}

func TestDetect(t *testing.T) {
	name, err := charset.Detect(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", name)

	name, err = charset.Detect([]byte(strings.Repeat("Übermäßig schöne Grüße, naïve Café! ", 10)), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", name)

	name, err = charset.Detect([]byte("\xef\xbb\xbfplain ascii after a byte order mark"), "")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", name)
}
