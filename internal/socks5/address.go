package socks5

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	txsocks5 "github.com/txthinking/socks5"
	"golang.org/x/net/idna"
)

// idnaProfile maps and punycodes names the way a resolver lookup would, but
// tolerates non-STD3 characters such as '_' that show up in real hostnames.
var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(true),
	idna.StrictDomainName(false),
)

// EncodeAddress returns the SOCKS5 address type and DST.ADDR bytes for host.
//
// Surrounding brackets are stripped. A dotted quad whose four parts are all
// in 0-255 encodes as IPv4. Anything else containing a colon must be an IPv6
// literal. Everything else is converted to ASCII with IDNA and sent as a
// domain name; for domains the returned bytes do not include the length
// prefix.
func EncodeAddress(host string) (byte, []byte, error) {
	h := strings.TrimSpace(host)
	h = strings.TrimPrefix(h, "[")
	h = strings.TrimSuffix(h, "]")

	if ip, ok := parseDottedQuad(h); ok {
		return txsocks5.ATYPIPv4, ip, nil
	}

	if strings.Contains(h, ":") {
		addr, err := netip.ParseAddr(h)
		if err != nil || !addr.Is6() {
			return 0, nil, fmt.Errorf("%w: %q is not an IPv6 literal", ErrInvalidHost, host)
		}
		b := addr.As16()
		return txsocks5.ATYPIPv6, b[:], nil
	}

	ascii, err := idnaProfile.ToASCII(h)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %q: %w", ErrInvalidHost, host, err)
	}
	if len(ascii) == 0 || len(ascii) > 255 {
		return 0, nil, fmt.Errorf("%w: %q encodes to %d bytes", ErrInvalidHost, host, len(ascii))
	}
	return txsocks5.ATYPDomain, []byte(ascii), nil
}

func parseDottedQuad(s string) ([]byte, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, false
	}
	ip := make([]byte, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return nil, false
		}
		ip[i] = byte(n)
	}
	return ip, true
}
