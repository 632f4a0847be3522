package netaddr

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yoloz/kska/metric"
)

type reporterMetrics struct {
	requests *prometheus.CounterVec // by status: success, error, throttled
}

func newReporterMetrics(registry metric.Registrar) (*reporterMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &reporterMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kska",
			Name:      "address_requests_total",
			Help:      "Total number of local address requests by outcome",
		}, []string{"status"}),
	}
	if err := registry.RegisterCounterVec("netaddr", "address_requests", m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	statusSuccess   = "success"
	statusError     = "error"
	statusThrottled = "throttled"
)

func statusOf(res Result) string {
	if res.Success {
		return statusSuccess
	}
	return statusError
}

func (m *reporterMetrics) recordRequest(status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(status).Inc()
}
