// Package proxy implements the loopback bridge: one listener that accepts
// both raw SOCKS5 clients and HTTP proxy clients and forwards every
// connection through a backend SOCKS5 server.
//
// It also contains the shared connection plumbing: the reuse-address
// listener, the connection registry used for forced shutdown, and the
// bidirectional relay.
package proxy
