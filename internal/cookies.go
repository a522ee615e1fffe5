package internal

import (
	"net/http"
	"strings"
)

// extractCookies collects name/value pairs from every Set-Cookie header
// into jar. Attributes after the first ';' are ignored and a later cookie
// with the same name overwrites an earlier one.
func extractCookies(header http.Header, jar map[string]string) {
	for k, values := range header {
		if !strings.EqualFold(k, "Set-Cookie") {
			continue
		}
		for _, v := range values {
			pair, _, _ := strings.Cut(v, ";")
			name, value, _ := strings.Cut(pair, "=")
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			jar[name] = strings.TrimSpace(value)
		}
	}
}
