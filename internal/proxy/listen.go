package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on the given network/address with SO_REUSEADDR set, and
// returns a net.Listener that applies keepAliveConfig to accepted TCP
// connections.
func ListenTCP(network, addr string, keepAliveConfig net.KeepAliveConfig) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}

	ln, err := lc.Listen(context.Background(), network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	return &KeepAliveListener{Listener: ln, KeepAliveConfig: keepAliveConfig}, nil
}

// KeepAliveListener wraps a net.Listener, applying KeepAliveConfig to any
// accepted *net.TCPConn and disabling Nagle's algorithm on it.
type KeepAliveListener struct {
	net.Listener
	net.KeepAliveConfig
}

// Accept accepts the next connection and tunes it if it is a *net.TCPConn.
func (l *KeepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(l.KeepAliveConfig)
		_ = tc.SetNoDelay(true)
	}

	return conn, nil
}
