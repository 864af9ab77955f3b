package dialer

import (
	"net"
	"time"
)

// DefaultDialTimeout bounds the TCP connect to the backend.
const DefaultDialTimeout = 8 * time.Second

type Config struct {
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig
}
