// Package transport writes HTTP/1.1 requests and reads HTTP/1.1 responses
// following the message syntax of RFC 9112, with the semantics of RFC 9110.
//
// every exchange owns its connection: a response body either ends at its
// framing boundary or reads until the peer closes, and closing the body
// closes the connection. there is no keep-alive and no HTTP/2.
//
// net/http components are reused on the "semantics" part ([net/http.Header],
// [net/textproto] for header parsing, etc.)
package transport
