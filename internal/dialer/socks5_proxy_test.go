package dialer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txthinking/socks5"

	"github.com/die-net/socksbridge/internal/testutil"
)

func TestSOCKS5ProxyDialerDialSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	backendPort := testutil.StartSOCKS5Backend(t, ctx)

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, LoopbackAddr(backendPort))
	assert.Equal(t, LoopbackAddr(backendPort), d.ProxyAddr())

	conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	testutil.AssertEcho(t, conn, conn, []byte("hello"))
}

func TestSOCKS5ProxyDialerDialContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Accept, then never answer the greeting.
	upLn, waitUp := testutil.StartSingleAcceptServer(t, context.Background(), func(c net.Conn) {
		buf := make([]byte, 16)
		for {
			if _, err := c.Read(buf); err != nil {
				return
			}
		}
	})

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upLn.Addr().String())

	start := time.Now()
	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	waitUp()
}

func TestSOCKS5ProxyDialerDialFail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		if _, err := socks5.NewNegotiationRequestFrom(c); err != nil {
			return
		}
		if _, err := socks5.NewNegotiationReply(socks5.MethodNone).WriteTo(c); err != nil {
			return
		}
		req, err := socks5.NewRequestFrom(c)
		if err != nil {
			return
		}
		if req.Cmd != socks5.CmdConnect {
			return
		}
		_, _ = socks5.NewReply(socks5.RepConnectionRefused, socks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c)
	})

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upLn.Addr().String())

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=5")

	waitUp()
}

func TestSOCKS5ProxyDialerBackendDown(t *testing.T) {
	d := NewSOCKS5ProxyDialer(Config{DialTimeout: time.Second}, LoopbackAddr(testutil.FreePort(t)))

	_, err := d.DialContext(context.Background(), "tcp", "example.com:80")
	require.Error(t, err)
}

func TestSOCKS5ProxyDialerRejectsInput(t *testing.T) {
	d := NewSOCKS5ProxyDialer(Config{}, "127.0.0.1:1")

	_, err := d.DialContext(context.Background(), "udp", "example.com:53")
	require.Error(t, err)

	_, err = d.DialContext(context.Background(), "tcp", "example.com")
	require.Error(t, err)
}
