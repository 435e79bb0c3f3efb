package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "momo_collections"

// Metrics records gateway traffic. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	requests          *prometheus.CounterVec
	reauthorizations  *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	reconciledPayment *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Gateway round trips by operation and HTTP status.",
		}, []string{"operation", "status"}),
		reauthorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reauthorizations_total",
			Help:      "Re-authorizations triggered by an expired access token.",
		}, []string{"operation"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Gateway round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		reconciledPayment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_payments_total",
			Help:      "Pending payments visited by the reconciler, by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.reauthorizations, m.requestDuration, m.reconciledPayment)
	}

	return m
}

func (m *Metrics) ObserveRequest(operation string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) ObserveReauthorization(operation string) {
	if m == nil {
		return
	}
	m.reauthorizations.WithLabelValues(operation).Inc()
}

// ObserveReconciliation counts one reconciled payment. outcome is "updated",
// "unchanged" or "failed".
func (m *Metrics) ObserveReconciliation(outcome string) {
	if m == nil {
		return
	}
	m.reconciledPayment.WithLabelValues(outcome).Inc()
}
