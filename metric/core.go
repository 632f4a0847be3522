package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kska"

// Metrics contains the process-level metrics shared by every component
type Metrics struct {
	ErrorsTotal    *prometheus.CounterVec
	SourceStatus   *prometheus.GaugeVec
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and class",
			},
			[]string{"component", "class"},
		),

		SourceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "status",
				Help:      "Source status (0=stopped, 1=running, 2=failed)",
			},
			[]string{"source", "kind"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// Source status values
const (
	SourceStopped = 0
	SourceRunning = 1
	SourceFailed  = 2
)

// RecordError counts an error for a component
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordSourceStatus sets the status gauge for a source
func (m *Metrics) RecordSourceStatus(source, kind string, status int) {
	m.SourceStatus.WithLabelValues(source, kind).Set(float64(status))
}

// RecordNATSConnected records the NATS connection state
func (m *Metrics) RecordNATSConnected(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
		return
	}
	m.NATSConnected.Set(0)
}

// RecordNATSReconnect counts a reconnection
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
