package httpreq

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Target is where a non-CONNECT request is forwarded.
type Target struct {
	Host         string // unbracketed
	Port         int
	Scheme       string // "http" or "https"
	PathAndQuery string // always begins with "/"
}

// Authority is a parsed host[:port].
type Authority struct {
	Host string
	Port int
}

// DefaultPort returns the well-known port for scheme.
func DefaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// ResolveTarget derives the destination of r.
//
// An absolute-URI target wins; otherwise the Host header supplies the
// authority and the target is taken as the path.
func ResolveTarget(r *Request) (Target, error) {
	raw := strings.TrimSpace(r.Target)
	if hasPrefixFold(raw, "http://") || hasPrefixFold(raw, "https://") {
		return resolveAbsolute(raw)
	}

	hostHeader, ok := r.Get("Host")
	if !ok {
		return Target{}, fmt.Errorf("%w: no Host header", ErrMissingHost)
	}
	a, err := ParseAuthority(hostHeader, 80)
	if err != nil {
		return Target{}, err
	}

	path := raw
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Target{Host: a.Host, Port: a.Port, Scheme: "http", PathAndQuery: path}, nil
}

func resolveAbsolute(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse target %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	host := u.Hostname()
	if host == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrMissingHost, raw)
	}

	port := DefaultPort(scheme)
	if p := u.Port(); p != "" {
		port, err = parsePort(p)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidAuthority, raw)
		}
	}

	return Target{Host: host, Port: port, Scheme: scheme, PathAndQuery: rawPathAndQuery(raw)}, nil
}

// rawPathAndQuery returns everything after the authority of an absolute URI,
// without the fragment and without re-escaping.
func rawPathAndQuery(raw string) string {
	rest := raw[strings.Index(raw, "://")+len("://"):]
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	i := strings.IndexAny(rest, "/?")
	if i < 0 {
		return "/"
	}
	rest = rest[i:]
	if rest[0] == '?' {
		return "/" + rest
	}
	return rest
}

// ParseAuthority parses "[v6]", "[v6]:port", "host:port" or "host".
//
// A port is only split off an unbracketed authority when it has exactly one
// colon, so a bare IPv6 literal is taken as a host.
func ParseAuthority(s string, defaultPort int) (Authority, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Authority{}, fmt.Errorf("%w: empty", ErrInvalidAuthority)
	}

	if strings.HasPrefix(v, "[") {
		end := strings.IndexByte(v, ']')
		if end <= 0 {
			return Authority{}, fmt.Errorf("%w: %q", ErrInvalidAuthority, s)
		}
		host := v[1:end]
		rest := v[end+1:]
		if !strings.HasPrefix(rest, ":") {
			return Authority{Host: host, Port: defaultPort}, nil
		}
		port, err := parsePort(rest[1:])
		if err != nil {
			return Authority{}, fmt.Errorf("%w: %q", ErrInvalidAuthority, s)
		}
		return Authority{Host: host, Port: port}, nil
	}

	last := strings.LastIndexByte(v, ':')
	if last > 0 && strings.IndexByte(v, ':') == last {
		port, err := parsePort(v[last+1:])
		if err != nil {
			return Authority{}, fmt.Errorf("%w: %q", ErrInvalidAuthority, s)
		}
		return Authority{Host: v[:last], Port: port}, nil
	}

	return Authority{Host: v, Port: defaultPort}, nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port %d out of range", n)
	}
	return n, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
