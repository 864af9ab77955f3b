package socks5

import (
	"errors"
	"fmt"
)

var (
	// ErrNegotiationFailed is returned when the server does not accept the
	// no-auth method.
	ErrNegotiationFailed = errors.New("socks5 auth negotiation failed")
	// ErrBadReply is returned for a reply with the wrong protocol version.
	ErrBadReply = errors.New("socks5 malformed reply")
	// ErrBadAddressType is returned for a reply whose bound address type is
	// not IPv4, IPv6, or a domain name.
	ErrBadAddressType = errors.New("socks5 unsupported address type in reply")
	// ErrInvalidHost is returned when a destination cannot be encoded.
	ErrInvalidHost = errors.New("socks5 invalid target host")
	// ErrInvalidPort is returned for a destination port outside 1-65535.
	ErrInvalidPort = errors.New("socks5 invalid target port")
)

var replyText = map[byte]string{
	0x01: "general server failure",
	0x02: "connection not allowed by ruleset",
	0x03: "network unreachable",
	0x04: "host unreachable",
	0x05: "connection refused",
	0x06: "TTL expired",
	0x07: "command not supported",
	0x08: "address type not supported",
}

// ReplyError reports a CONNECT reply with a non-zero status.
type ReplyError struct {
	Code byte
}

func (e *ReplyError) Error() string {
	if s, ok := replyText[e.Code]; ok {
		return fmt.Sprintf("socks5 connect failed (code=%d): %s", e.Code, s)
	}
	return fmt.Sprintf("socks5 connect failed (code=%d)", e.Code)
}
