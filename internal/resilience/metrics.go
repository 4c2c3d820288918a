package resilience

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "storefront"
	metricsSubsystem = "backend"
)

var (
	// BreakerState is the breaker state per target: 0 closed, 1 open, 2 half-open.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "breaker_state",
		Help:      "Circuit breaker state per backend target.",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "breaker_transitions_total",
		Help:      "Circuit breaker state changes per backend target.",
	}, []string{"target", "from", "to"})
	// BackendAttempts counts every outbound attempt, retries included.
	BackendAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "attempts_total",
		Help:      "Outbound backend attempts by outcome.",
	}, []string{"target", "outcome"})
	AttemptDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "attempt_duration_seconds",
		Help:      "Latency of single outbound backend attempts.",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"target"})
)

// RegisterMetrics adds the breaker and attempt collectors to reg. Collectors
// that are already registered are left in place.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{BreakerState, BreakerTransitions, BackendAttempts, AttemptDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func recordAttempt(target, outcome string, started time.Time) {
	BackendAttempts.WithLabelValues(target, outcome).Inc()
	if !started.IsZero() {
		AttemptDuration.WithLabelValues(target).Observe(time.Since(started).Seconds())
	}
}
