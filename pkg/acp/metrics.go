package acp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments a Connection with Prometheus collectors (§4.10): a
// counter of messages by (role, method, outcome), a histogram of dispatch
// durations, and gauges for pending requests and live sessions. All
// methods are nil-receiver safe, so a Connection built without Metrics
// pays nothing beyond a nil check at each instrumentation point.
type Metrics struct {
	messagesTotal      *prometheus.CounterVec
	dispatchDuration   *prometheus.HistogramVec
	pendingRequests    prometheus.Gauge
	sessionsGauge      prometheus.Gauge
}

// NewMetrics builds a Metrics registered against reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to publish alongside the rest of a
// process's metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_messages_total",
			Help: "Total JSON-RPC messages processed, by role, method, and outcome.",
		}, []string{"role", "method", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acp_dispatch_duration_seconds",
			Help:    "Time spent in a handler operation, by role and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"role", "method"}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acp_pending_requests",
			Help: "Outbound requests currently awaiting a response.",
		}),
		sessionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acp_sessions",
			Help: "Sessions currently registered on the connection.",
		}),
	}
	for _, c := range []prometheus.Collector{m.messagesTotal, m.dispatchDuration, m.pendingRequests, m.sessionsGauge} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeMessage(role Role, method, outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(role.String(), method, outcome).Inc()
}

func (m *Metrics) observeDispatch(role Role, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(role.String(), method).Observe(d.Seconds())
}

func (m *Metrics) setPendingRequests(n int) {
	if m == nil {
		return
	}
	m.pendingRequests.Set(float64(n))
}

func (m *Metrics) setSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsGauge.Set(float64(n))
}
