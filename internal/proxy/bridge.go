package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/die-net/socksbridge/internal/dialer"
)

// Bridge accepts SOCKS5 and HTTP proxy clients on a loopback port and sends
// all of their traffic through a SOCKS5 backend on another loopback port.
//
// Start and Stop may be called from any goroutine, any number of times.
type Bridge struct {
	cfg     Config
	log     zerolog.Logger
	metrics *Metrics

	mu  sync.Mutex
	cur *generation
}

// generation is everything owned by one successful Start. Stop tears down a
// whole generation, so a late accept from an old listener can never register
// into a newer one.
type generation struct {
	ln     net.Listener
	dialer *dialer.SOCKS5ProxyDialer
	ctx    context.Context
	cancel context.CancelFunc
	conns  *registry
	active atomic.Bool
}

func NewBridge(cfg Config) *Bridge {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = dialer.DefaultDialTimeout
	}
	m := cfg.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Bridge{cfg: cfg, log: cfg.Log, metrics: m}
}

// Start stops any running listener, then listens on 127.0.0.1:listenPort and
// relays through the SOCKS5 server at 127.0.0.1:socksPort. It returns once
// the listener is bound; connections are served in the background.
func (b *Bridge) Start(listenPort, socksPort int) error {
	if err := checkPort(listenPort); err != nil {
		return fmt.Errorf("listen port: %w", err)
	}
	if err := checkPort(socksPort); err != nil {
		return fmt.Errorf("socks port: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	ln, err := ListenTCP("tcp4", dialer.LoopbackAddr(listenPort), b.cfg.KeepAlive)
	if err != nil {
		return err
	}

	proxyAddr := dialer.LoopbackAddr(socksPort)
	ctx, cancel := context.WithCancel(context.Background())
	g := &generation{
		ln: ln,
		dialer: dialer.NewSOCKS5ProxyDialer(dialer.Config{
			DialTimeout: b.cfg.DialTimeout,
			KeepAlive:   b.cfg.KeepAlive,
		}, proxyAddr),
		ctx:    ctx,
		cancel: cancel,
		conns:  newRegistry(),
	}
	g.active.Store(true)
	b.cur = g

	b.log.Info().Stringer("listen", ln.Addr()).Str("socks", proxyAddr).Msg("bridge listening")

	go b.serve(g)
	return nil
}

// Stop closes the listener and every connection it accepted. The port is
// released by the time Stop returns. Stop on a stopped Bridge is a no-op.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Bridge) stopLocked() {
	g := b.cur
	if g == nil {
		return
	}
	b.cur = nil

	g.active.Store(false)
	_ = g.ln.Close()
	g.cancel()
	n := g.conns.Len()
	g.conns.CloseAll()

	b.log.Info().Stringer("listen", g.ln.Addr()).Int("connections", n).Msg("bridge stopped")
}

// Addr returns the bound listener address, or nil when stopped.
func (b *Bridge) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return nil
	}
	return b.cur.ln.Addr()
}

func (b *Bridge) serve(g *generation) {
	for {
		c, err := g.ln.Accept()
		if err != nil {
			if g.active.Load() && !errors.Is(err, net.ErrClosed) {
				b.log.Error().Err(err).Msg("accept failed, no longer accepting")
				_ = g.ln.Close()
			}
			return
		}

		if !g.conns.Add(c) {
			_ = c.Close()
			continue
		}
		b.metrics.accepted.Inc()

		go b.serveConn(g, c)
	}
}

func (b *Bridge) serveConn(g *generation, c net.Conn) {
	b.metrics.active.Inc()
	defer b.metrics.active.Dec()
	defer func() {
		g.conns.Remove(c)
		_ = c.Close()
	}()

	log := b.log.With().
		Str("conn", uuid.NewString()).
		Stringer("remote", c.RemoteAddr()).
		Logger()

	s := newSession(c, g.dialer, log, b.metrics)
	if err := s.serve(g.ctx); err != nil && g.active.Load() && !errors.Is(err, net.ErrClosed) {
		log.Warn().Err(err).Msg("connection failed")
	}
}

func checkPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%d out of range", port)
	}
	return nil
}
