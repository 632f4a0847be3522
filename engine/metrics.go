package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yoloz/kska/metric"
)

// engineMetrics holds Prometheus metrics for handle processing
type engineMetrics struct {
	consumed         *prometheus.CounterVec // by topic and kind
	extractionErrors *prometheus.CounterVec // by topic
	tableUpdates     *prometheus.CounterVec // by store and op
}

// newEngineMetrics creates and registers the metrics; nil registry disables them
func newEngineMetrics(registry metric.Registrar) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &engineMetrics{
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kska",
			Name:      "records_consumed_total",
			Help:      "Total number of records consumed by source handles",
		}, []string{"topic", "kind"}),

		extractionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kska",
			Name:      "extraction_errors_total",
			Help:      "Total number of records whose timestamp could not be extracted",
		}, []string{"topic"}),

		tableUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kska",
			Name:      "table_updates_total",
			Help:      "Total number of state store writes by table handles",
		}, []string{"store", "op"}), // op: put, delete, skip
	}

	if err := registry.RegisterCounterVec("engine", "records_consumed", m.consumed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "extraction_errors", m.extractionErrors); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "table_updates", m.tableUpdates); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *engineMetrics) recordConsumed(topic, kind string) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(topic, kind).Inc()
}

func (m *engineMetrics) recordExtractionError(topic string) {
	if m == nil {
		return
	}
	m.extractionErrors.WithLabelValues(topic).Inc()
}

func (m *engineMetrics) recordTableUpdate(store, op string) {
	if m == nil {
		return
	}
	m.tableUpdates.WithLabelValues(store, op).Inc()
}
