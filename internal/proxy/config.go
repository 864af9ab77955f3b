package proxy

import (
	"net"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	// DialTimeout bounds the TCP connect to the backend. Zero means
	// dialer.DefaultDialTimeout.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	Log zerolog.Logger

	// Metrics may be nil, in which case unregistered collectors are used.
	Metrics *Metrics
}
