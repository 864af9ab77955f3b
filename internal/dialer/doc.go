// Package dialer provides the outbound dialers used by the bridge.
//
// Dialers implement a small interface (DialContext). The direct dialer
// reaches the SOCKS5 backend itself; the SOCKS5 dialer reaches a destination
// through it.
package dialer
