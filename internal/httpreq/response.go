package httpreq

import (
	"fmt"
	"io"
	"net/http"
)

// ConnectEstablished is written to the client once a CONNECT tunnel is up.
const ConnectEstablished = "HTTP/1.1 200 Connection Established\r\n\r\n"

// WriteError writes a complete plain-text error response that closes the
// connection.
func WriteError(w io.Writer, code int) error {
	text := http.StatusText(code)
	body := fmt.Sprintf("%d %s\n", code, text)
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: %d\r\n\r\n%s",
		code, text, len(body), body)
	return err
}
