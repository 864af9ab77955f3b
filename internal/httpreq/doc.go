// Package httpreq reads and rewrites the header block of a proxied HTTP/1.x
// request without going through net/http.
//
// Headers are handled as ISO-8859-1 so arbitrary header bytes survive a
// parse and rewrite unchanged, and header order and duplicates are kept
// exactly as the client sent them.
package httpreq
