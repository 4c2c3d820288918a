package obs

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var defaultLatencyBucketsMS = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// HTTPMetrics groups the request collectors used by HTTPObs.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers the request collectors on reg, or on the default
// registerer when reg is nil. A second call against the same registry returns
// the collectors registered by the first.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = defaultLatencyBucketsMS
	}
	buckets = slices.Sorted(slices.Values(buckets))

	return &HTTPMetrics{
		ReqTotal: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, matched route and status.",
		}, []string{"method", "route", "status"})),
		ReqDur: registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"})),
		InFlight: registerOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "HTTP requests currently being served.",
		})),
	}
}

// registerOrReuse registers c and returns it, or returns the collector of the
// same type already registered under its name. Any other error panics.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
		return c
	}
	panic(fmt.Errorf("obs: register collector: %w", err))
}

// ParseBucketsCSV reads comma-separated millisecond bucket bounds, skipping
// entries that are not positive numbers.
func ParseBucketsCSV(csv string) []float64 {
	var out []float64
	for part := range strings.SplitSeq(csv, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err == nil && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// DurationMillis converts a duration to fractional milliseconds.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
