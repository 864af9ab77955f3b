// Package socks5 implements the client half of a SOCKS5 CONNECT handshake
// against a bridge backend.
//
// It wraps the low-level protocol types in github.com/txthinking/socks5 for
// negotiation and request framing, and adds the destination address encoding
// and bound-address reply parsing the bridge relies on. After [ClientDial]
// returns, the connection carries only the tunneled stream.
//
// Only no-auth negotiation and the CONNECT command are supported.
package socks5
