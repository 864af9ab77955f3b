package testutil

import (
	"context"
	"io"
	"log"
	"net"
	"testing"

	gosocks5 "github.com/armon/go-socks5"
	"github.com/stretchr/testify/require"
)

// StartSOCKS5Backend starts a no-auth SOCKS5 server on loopback and returns
// its port. It stands in for the tunnel backend.
func StartSOCKS5Backend(t *testing.T, ctx context.Context) int {
	t.Helper()

	srv, err := gosocks5.New(&gosocks5.Config{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() { _ = srv.Serve(ln) }()

	return ln.Addr().(*net.TCPAddr).Port
}
