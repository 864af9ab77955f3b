package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/die-net/socksbridge/internal/socks5"
)

// SOCKS5ProxyDialer dials destinations through a no-auth SOCKS5 server.
type SOCKS5ProxyDialer struct {
	proxyAddr string
	direct    Dialer
}

func NewSOCKS5ProxyDialer(cfg Config, proxyAddr string) *SOCKS5ProxyDialer {
	return &SOCKS5ProxyDialer{proxyAddr: proxyAddr, direct: NewDirectDialer(cfg)}
}

// ProxyAddr returns the SOCKS5 server host:port.
func (d *SOCKS5ProxyDialer) ProxyAddr() string {
	return d.proxyAddr
}

// DialProxy opens a plain TCP connection to the SOCKS5 server without any
// handshake, for clients that speak SOCKS5 themselves.
func (d *SOCKS5ProxyDialer) DialProxy(ctx context.Context) (net.Conn, error) {
	return d.direct.DialContext(ctx, "tcp", d.proxyAddr)
}

// DialContext connects to address through the SOCKS5 server. The handshake
// is aborted if ctx is done before it completes.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: invalid port: %w", address, err)
	}

	c, err := d.DialProxy(ctx)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Unix(1, 0))
	})
	err = socks5.ClientDial(c, host, port)
	if !stop() {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, errors.Join(ctx.Err(), err))
	}
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}
	return c, nil
}
