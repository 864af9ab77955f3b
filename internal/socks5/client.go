package socks5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// ClientDial negotiates no-auth on conn and then issues CONNECT for
// host:port. On success the reply has been fully consumed and conn carries
// only tunneled bytes.
func ClientDial(conn io.ReadWriter, host string, port int) error {
	if err := ClientNegotiate(conn); err != nil {
		return err
	}
	if err := ClientConnect(conn, host, port); err != nil {
		return err
	}
	return nil
}

// ClientNegotiate offers only the no-auth method and requires the server to
// select it.
func ClientNegotiate(conn io.ReadWriter) error {
	var buf bytes.Buffer
	if _, err := txsocks5.NewNegotiationRequest([]byte{txsocks5.MethodNone}).WriteTo(&buf); err != nil {
		return fmt.Errorf("encode negotiation: %w", err)
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}
	if neg.Method != txsocks5.MethodNone {
		return fmt.Errorf("%w: server selected method 0x%02x", ErrNegotiationFailed, neg.Method)
	}
	return nil
}

// ClientConnect writes a CONNECT request for host:port and reads the reply.
func ClientConnect(conn io.ReadWriter, host string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	atyp, dstAddr, err := EncodeAddress(host)
	if err != nil {
		return err
	}
	dstPort := make([]byte, 2)
	binary.BigEndian.PutUint16(dstPort, uint16(port))

	// One write so the whole request lands in a single segment.
	var buf bytes.Buffer
	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, dstAddr, dstPort).WriteTo(&buf); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	return readReply(conn)
}
