package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/die-net/socksbridge/internal/dialer"
	"github.com/die-net/socksbridge/internal/httpreq"
)

// session handles one accepted client connection.
type session struct {
	client  net.Conn
	br      *bufio.Reader
	dialer  *dialer.SOCKS5ProxyDialer
	log     zerolog.Logger
	metrics *Metrics
}

func newSession(c net.Conn, d *dialer.SOCKS5ProxyDialer, log zerolog.Logger, m *Metrics) *session {
	return &session{
		client:  c,
		br:      bufio.NewReader(c),
		dialer:  d,
		log:     log,
		metrics: m,
	}
}

// serve classifies the connection by its first byte. HTTP request lines
// start with a method token; anything else is handed to the backend as-is.
func (s *session) serve(ctx context.Context) error {
	first, err := s.br.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if isLetter(first[0]) {
		return s.serveHTTP(ctx)
	}
	return s.servePassthrough(ctx)
}

// servePassthrough connects to the backend without a handshake and relays
// every client byte, including the peeked one, unchanged.
func (s *session) servePassthrough(ctx context.Context) error {
	s.metrics.requests.WithLabelValues(kindSOCKS5).Inc()
	s.log.Debug().Msg("passthrough to socks backend")

	up, err := s.dialer.DialProxy(ctx)
	if err != nil {
		s.metrics.failures.WithLabelValues(stageDial).Inc()
		return fmt.Errorf("connect to socks backend: %w", err)
	}
	defer up.Close()

	s.relay(ctx, up)
	return nil
}

func (s *session) serveHTTP(ctx context.Context) error {
	req, err := httpreq.ReadRequest(s.br)
	if err != nil {
		return s.badGateway(stageParse, err)
	}

	if req.Method == http.MethodConnect {
		return s.serveConnect(ctx, req)
	}

	s.metrics.requests.WithLabelValues(kindHTTP).Inc()

	target, err := httpreq.ResolveTarget(req)
	if err != nil {
		return s.badGateway(stageResolve, err)
	}
	s.log.Debug().Str("method", req.Method).Str("host", target.Host).Int("port", target.Port).Msg("forwarding request")

	up, err := s.dial(ctx, target.Host, target.Port)
	if err != nil {
		return s.badGateway(stageDial, err)
	}
	defer up.Close()

	if _, err := up.Write(httpreq.ForwardRequest(req, target)); err != nil {
		return s.badGateway(stageDial, fmt.Errorf("write request upstream: %w", err))
	}

	s.relay(ctx, up)
	return nil
}

func (s *session) serveConnect(ctx context.Context, req *httpreq.Request) error {
	s.metrics.requests.WithLabelValues(kindConnect).Inc()

	a, err := httpreq.ParseAuthority(req.Target, 443)
	if err != nil {
		return s.badGateway(stageResolve, err)
	}
	s.log.Debug().Str("host", a.Host).Int("port", a.Port).Msg("connect tunnel")

	up, err := s.dial(ctx, a.Host, a.Port)
	if err != nil {
		return s.badGateway(stageDial, err)
	}
	defer up.Close()

	// Once any part of the 200 may have been sent, a 502 is no longer valid.
	if _, err := io.WriteString(s.client, httpreq.ConnectEstablished); err != nil {
		return fmt.Errorf("write connect response: %w", err)
	}

	s.relay(ctx, up)
	return nil
}

func (s *session) dial(ctx context.Context, host string, port int) (net.Conn, error) {
	return s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// badGateway records a pre-relay failure and answers it with a 502. The
// error is returned for logging; a failed 502 write is not reported.
func (s *session) badGateway(stage string, err error) error {
	s.metrics.failures.WithLabelValues(stage).Inc()
	if werr := httpreq.WriteError(s.client, http.StatusBadGateway); werr != nil {
		s.log.Debug().Err(werr).Msg("write 502 failed")
	}
	return err
}

// relay pipes client and up until either side finishes. Cancelling ctx
// closes up, so Stop also ends relays whose upstream never closes.
func (s *session) relay(ctx context.Context, up net.Conn) {
	stop := context.AfterFunc(ctx, func() {
		_ = up.Close()
	})
	defer stop()

	upstreamBytes := s.metrics.bytes.WithLabelValues("upstream")
	received, err := Relay(s.client, s.br, up, func(n int64) {
		upstreamBytes.Add(float64(n))
	})
	s.metrics.bytes.WithLabelValues("downstream").Add(float64(received))
	if err != nil {
		s.metrics.failures.WithLabelValues(stageRelay).Inc()
	}
	s.log.Debug().Int64("received", received).AnErr("relay_err", err).Msg("relay done")
}

func isLetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
