// Package tunnel runs the ICMP tunnel client that provides the bridge's
// SOCKS5 backend: it loads the tunnel's YAML configuration, builds the
// client's argument vector, and supervises the child process.
package tunnel
