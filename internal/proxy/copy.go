package proxy

import (
	"errors"
	"io"
	"net"
	"time"
)

const (
	relayBufferSize = 16 << 10

	// relayGrace is how long Relay waits for the client->upstream copy
	// after upstream->client finishes.
	relayGrace = 300 * time.Millisecond
)

var relayBuffers = newBufferPool(relayBufferSize)

// Relay pipes bytes between a client and an upstream connection.
//
// Client bytes are read from clientReader, which may hold bytes already
// buffered from client. When the client side reaches EOF the upstream send
// side is half-closed and onSent, if set, is called with the number of bytes
// sent upstream. Relay returns once upstream->client is done and the other
// direction has finished or relayGrace has passed; the caller closes both
// connections, which unblocks anything still running. onSent may therefore
// run after Relay returns.
func Relay(client net.Conn, clientReader io.Reader, upstream net.Conn, onSent func(int64)) (received int64, err error) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		n, _ := copyBuffer(upstream, clientReader)
		closeWrite(upstream)
		if onSent != nil {
			onSent(n)
		}
	}()

	received, err = copyBuffer(client, upstream)

	t := time.NewTimer(relayGrace)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
	}

	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return received, err
}

func copyBuffer(dst io.Writer, src io.Reader) (int64, error) {
	buf := relayBuffers.Get()
	defer relayBuffers.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}
