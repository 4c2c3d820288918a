package obs

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// statusOf reads the written status. Handlers that never call WriteHeader
// answered 200.
func statusOf(ww middleware.WrapResponseWriter) int {
	if code := ww.Status(); code != 0 {
		return code
	}
	return http.StatusOK
}

// HTTPObs instruments HTTP handlers with metrics.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware instruments request/response lifecycle with counters and histograms.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(ww, r)
		o.Metrics.InFlight.Dec()

		route := routeLabel(r, "unknown")
		status := strconv.Itoa(statusOf(ww))
		o.Metrics.ReqTotal.WithLabelValues(r.Method, route, status).Inc()
		o.Metrics.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
	})
}

// TracingMiddleware starts a server span for each incoming request,
// continuing any trace propagated by the client.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("http.server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(parent, r.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(ctx)
		next.ServeHTTP(ww, r)

		// The route is only known once the router has matched.
		route := routeLabel(r, r.URL.Path)
		span.SetName(fmt.Sprintf("%s %s", r.Method, route))
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", statusOf(ww)),
		)
		if userID := userFrom(r); userID != "" {
			span.SetAttributes(attribute.String("enduser.id", userID))
		}
		if statusOf(ww) >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(statusOf(ww)))
		}
	})
}
