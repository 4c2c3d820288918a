package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts applied cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartPersistFailuresTotal counts cart snapshot load/save failures.
	CartPersistFailuresTotal *prometheus.CounterVec
	// OrderSubmissionsTotal counts checkout attempts by outcome.
	OrderSubmissionsTotal *prometheus.CounterVec
	// SelectionRejectionsTotal counts customizations refused before reaching the cart.
	SelectionRejectionsTotal *prometheus.CounterVec
	// OrderSubmitLatency records order submission latency in milliseconds.
	OrderSubmitLatency prometheus.Histogram
)

// MustRegisterDomainMetrics creates the cart and checkout collectors once and
// registers them on reg. Until it runs the Inc helpers are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counter := func(name, help, label string) *prometheus.CounterVec {
			return registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, []string{label}))
		}
		CartMutationsTotal = counter("cart_mutations_total", "Applied cart mutations by operation.", "op")
		CartPersistFailuresTotal = counter("cart_persist_failures_total", "Cart snapshot persistence failures by operation.", "op")
		OrderSubmissionsTotal = counter("order_submissions_total", "Order submissions by result.", "result")
		SelectionRejectionsTotal = counter("selection_rejections_total", "Rejected customizations by reason.", "reason")
		OrderSubmitLatency = registerOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submit_duration_ms",
			Help:      "Latency of order submissions to the backend in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}))
	})
}

// IncCartMutation records one applied cart mutation.
func IncCartMutation(op string) {
	if CartMutationsTotal != nil {
		CartMutationsTotal.WithLabelValues(op).Inc()
	}
}

// IncCartPersistFailure records one failed snapshot load or save.
func IncCartPersistFailure(op string) {
	if CartPersistFailuresTotal != nil {
		CartPersistFailuresTotal.WithLabelValues(op).Inc()
	}
}

// IncOrderSubmission records a checkout outcome.
func IncOrderSubmission(result string) {
	if OrderSubmissionsTotal != nil {
		OrderSubmissionsTotal.WithLabelValues(result).Inc()
	}
}

// IncSelectionRejection records a refused customization.
func IncSelectionRejection(reason string) {
	if SelectionRejectionsTotal != nil {
		SelectionRejectionsTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveOrderSubmit records submission latency.
func ObserveOrderSubmit(ms float64) {
	if OrderSubmitLatency != nil {
		OrderSubmitLatency.Observe(ms)
	}
}
