package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
)

// Headers sets the response headers every storefront API reply carries.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

// apiHeaders suit a JSON API that is never framed, sniffed or cached.
// Cart and checkout payloads are per session.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=()"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

func (h Headers) hsts() string {
	if !h.EnableHSTS {
		return ""
	}
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 365 * 24 * 60 * 60
	}
	value := "max-age=" + strconv.Itoa(maxAge)
	if h.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// Middleware applies the headers. HSTS is only sent over TLS.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range apiHeaders {
			headers.Set(kv[0], kv[1])
		}
		if hsts != "" && r.TLS != nil {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CORS returns middleware allowing the storefront origins from a CSV list.
// A "*" entry allows any origin without credentials.
func CORS(originsCSV string) func(http.Handler) http.Handler {
	origins := make([]string, 0)
	wildcard := false
	for _, origin := range strings.Split(originsCSV, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			wildcard = true
		}
		origins = append(origins, trimmed)
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "X-Request-ID", "X-Session-ID", "X-Store-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           int((10 * time.Minute).Seconds()),
	})
}
