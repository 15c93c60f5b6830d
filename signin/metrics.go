package signin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records gate outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	evaluations     *prometheus.CounterVec
	identityCalls   *prometheus.CounterVec
	identityLatency *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
}

// NewMetrics creates the gate's collectors and registers them with reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signin",
			Name:      "filter_evaluations_total",
			Help:      "Gated content evaluations by resulting status.",
		}, []string{"status"}),
		identityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signin",
			Name:      "identity_calls_total",
			Help:      "Identity provider calls by operation and result.",
		}, []string{"op", "result"}),
		identityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signin",
			Name:      "identity_call_duration_seconds",
			Help:      "Identity provider call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signin",
			Name:      "submissions_total",
			Help:      "Form submissions by kind and outcome code.",
		}, []string{"kind", "code"}),
	}

	if reg != nil {
		reg.MustRegister(m.evaluations, m.identityCalls, m.identityLatency, m.submissions)
	}
	return m
}

func (m *Metrics) observeEvaluation(status FilterStatus) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) observeIdentityCall(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.identityCalls.WithLabelValues(op, result).Inc()
	m.identityLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) observeSubmission(kind, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "none"
	}
	m.submissions.WithLabelValues(kind, code).Inc()
}
