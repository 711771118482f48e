// Package metrics exposes the collector server's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Frame outcomes
const (
	ResultAccepted    = "accepted"
	ResultRejected    = "rejected"
	ResultUnsupported = "unsupported"
	ResultStoreFailed = "store_failed"
)

// ServerMetrics groups the instruments updated by the TCP server.
type ServerMetrics struct {
	ActiveConnections prometheus.Gauge
	Connections       prometheus.Counter
	Frames            *prometheus.CounterVec
	Acks              *prometheus.CounterVec
	InsertDuration    prometheus.Histogram
	ActiveCollectors  prometheus.Gauge
}

// NewServerMetrics creates the instruments and registers them with reg.
// A nil reg leaves them unregistered.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "collector",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Number of open collector connections.",
		}),
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "collector",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Collector connections accepted.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collector",
			Subsystem: "server",
			Name:      "frames_total",
			Help:      "Frames received, by outcome.",
		}, []string{"result"}),
		Acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collector",
			Subsystem: "server",
			Name:      "acks_total",
			Help:      "Acknowledgements written, by code.",
		}, []string{"code"}),
		InsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "collector",
			Subsystem: "server",
			Name:      "insert_duration_seconds",
			Help:      "Time spent persisting one sample.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveCollectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "collector",
			Subsystem: "registry",
			Name:      "active_collectors",
			Help:      "Collectors that reported within the registry TTL.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.ActiveConnections, m.Connections, m.Frames, m.Acks, m.InsertDuration, m.ActiveCollectors)
	}

	return m
}
