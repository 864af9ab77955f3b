package httpreq

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// HostHeader formats host and port for a Host header, leaving out the port
// when it is the scheme default and bracketing IPv6 literals.
func HostHeader(host string, port int, scheme string) string {
	h := host
	if strings.Contains(h, ":") && !strings.HasPrefix(h, "[") && !strings.HasSuffix(h, "]") {
		h = "[" + h + "]"
	}
	if port == DefaultPort(scheme) {
		return h
	}
	return h + ":" + strconv.Itoa(port)
}

// ForwardRequest renders r in origin form for sending to t.
//
// Proxy-Connection, Proxy-Authorization and Connection are dropped, Host is
// replaced by (or added as) the canonical form of t, and Connection: close
// is always appended.
func ForwardRequest(r *Request, t Target) []byte {
	var sb strings.Builder
	sb.WriteString(r.Method)
	sb.WriteByte(' ')
	sb.WriteString(t.PathAndQuery)
	sb.WriteByte(' ')
	sb.WriteString(r.Version)
	sb.WriteString("\r\n")

	host := HostHeader(t.Host, t.Port, t.Scheme)
	hasHost := false
	for _, h := range r.Headers {
		switch strings.ToLower(h.Name) {
		case "proxy-connection", "proxy-authorization", "connection":
			continue
		case "host":
			hasHost = true
			sb.WriteString("Host: " + host + "\r\n")
			continue
		}
		sb.WriteString(h.Name + ": " + h.Value + "\r\n")
	}
	if !hasHost {
		sb.WriteString("Host: " + host + "\r\n")
	}
	sb.WriteString("Connection: close\r\n\r\n")

	return encodeLatin1(sb.String())
}

func encodeLatin1(s string) []byte {
	b, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		// Unreachable with a replacing encoder.
		return []byte(s)
	}
	return b
}
