package socks5

import (
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// readReply reads a CONNECT reply and discards the bound address. It reads
// exactly the reply's bytes so nothing tunneled after it is consumed.
func readReply(r io.Reader) error {
	var hdr [4]byte // VER REP RSV ATYP
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if hdr[0] != txsocks5.Ver {
		return fmt.Errorf("%w: version 0x%02x", ErrBadReply, hdr[0])
	}
	if hdr[1] != txsocks5.RepSuccess {
		return &ReplyError{Code: hdr[1]}
	}

	var n int64
	switch hdr[3] {
	case txsocks5.ATYPIPv4:
		n = 4 + 2
	case txsocks5.ATYPIPv6:
		n = 16 + 2
	case txsocks5.ATYPDomain:
		var l [1]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return fmt.Errorf("read bound address length: %w", err)
		}
		n = int64(l[0]) + 2
	default:
		return fmt.Errorf("%w: 0x%02x", ErrBadAddressType, hdr[3])
	}

	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("read bound address: %w", err)
	}
	return nil
}
