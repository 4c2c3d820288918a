package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/storefront/internal/common"
)

// SessionHeader is the anonymous cart session header, logged when present.
const SessionHeader = "X-Session-ID"

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	return newLogger(os.Stdout, format, level)
}

func newLogger(w io.Writer, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || strings.TrimSpace(level) == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "storefront").Logger()
}

// RequestLogger records structured HTTP request logs enriched with tracing
// metadata, and attaches a request-scoped logger to the context so handlers
// can use zerolog.Ctx.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		scoped := l.Logger.With().Str("request_id", reqID).Logger()
		r = r.WithContext(scoped.WithContext(r.Context()))
		next.ServeHTTP(ww, r)

		route := routeLabel(r, r.URL.Path)
		spanCtx := trace.SpanContextFromContext(r.Context())

		lvl := zerolog.InfoLevel
		if statusOf(ww) >= http.StatusInternalServerError {
			lvl = zerolog.ErrorLevel
		}
		evt := scoped.WithLevel(lvl).
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", statusOf(ww)).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", ww.BytesWritten())
		if spanCtx.IsValid() {
			evt = evt.Str("trace_id", spanCtx.TraceID().String()).Str("span_id", spanCtx.SpanID().String())
		}
		if userID := userFrom(r); userID != "" {
			evt = evt.Str("user_id", userID)
		}
		if session := strings.TrimSpace(r.Header.Get(SessionHeader)); session != "" {
			evt = evt.Str("session_id", session)
		}
		if ip := common.ClientIP(r); ip != "" {
			evt = evt.Str("client_ip", ip)
		}
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}
