package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request kinds.
const (
	kindSOCKS5  = "socks5"
	kindConnect = "connect"
	kindHTTP    = "http"
)

// Failure stages.
const (
	stageParse   = "parse"
	stageResolve = "resolve"
	stageDial    = "dial"
	stageRelay   = "relay"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	accepted prometheus.Counter
	active   prometheus.Gauge
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "socksbridge",
			Name:      "connections_accepted_total",
			Help:      "Client connections accepted.",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "socksbridge",
			Name:      "connections_active",
			Help:      "Client connections currently being handled.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socksbridge",
			Name:      "requests_total",
			Help:      "Classified client connections by kind.",
		}, []string{"kind"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socksbridge",
			Name:      "failures_total",
			Help:      "Per-connection failures by stage.",
		}, []string{"stage"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socksbridge",
			Name:      "relay_bytes_total",
			Help:      "Bytes relayed, upstream is client to backend.",
		}, []string{"direction"}),
	}
}
