package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// CheckoutMetrics records checkout attempts, stage latency and cart mutation rejections.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	stages   *prometheus.HistogramVec
	rejected *prometheus.CounterVec
	breaker  *prometheus.CounterVec
	active   prometheus.Gauge
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout attempts by payment method and terminal state.",
	}, []string{"method", "state"})
	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_stage_duration_seconds",
		Help:      "Duration of remote checkout stages in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage", "result"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_rejected_total",
		Help:      "Cart mutations rejected before dispatch.",
	}, []string{"reason"})
	breaker := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commerce_breaker_transitions_total",
		Help:      "Commerce circuit breaker state transitions.",
	}, []string{"to"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Storefront sessions currently held in memory.",
	})
	reg.MustRegister(attempts, stages, rejected, breaker, active)
	return &CheckoutMetrics{
		attempts: attempts,
		stages:   stages,
		rejected: rejected,
		breaker:  breaker,
		active:   active,
	}
}

// IncAttempt counts an attempt reaching a terminal or suspended state.
func (m *CheckoutMetrics) IncAttempt(method, state string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(method), normalizeLabel(state)).Inc()
}

// ObserveStage records how long a remote stage took.
func (m *CheckoutMetrics) ObserveStage(stage string, err error, duration time.Duration) {
	if m == nil || m.stages == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stages.WithLabelValues(normalizeLabel(stage), result).Observe(duration.Seconds())
}

// IncMutationRejected counts a cart mutation refused locally.
func (m *CheckoutMetrics) IncMutationRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// BreakerTransition counts a breaker state change.
func (m *CheckoutMetrics) BreakerTransition(_, to string) {
	if m == nil || m.breaker == nil {
		return
	}
	m.breaker.WithLabelValues(normalizeLabel(to)).Inc()
}

// SetActiveSessions sets the in-memory session gauge.
func (m *CheckoutMetrics) SetActiveSessions(n int) {
	if m == nil || m.active == nil {
		return
	}
	m.active.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
