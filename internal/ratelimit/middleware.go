// Package ratelimit throttles requests per caller with ulule/limiter.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/storefront/internal/common"
)

// NewStore returns a Redis-backed store when rdb is set, otherwise an
// in-process one.
func NewStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}
	if rdb == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	return limiterredis.NewStoreWithOptions(rdb, opts)
}

// New builds a limiter from a formatted rate such as "10-M".
func New(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(strings.TrimSpace(formatted))
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// ByClientIP keys requests by client address.
func ByClientIP(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// ByCaller keys requests by user, then cart session, then client address.
func ByCaller(r *http.Request) string {
	if uid, ok := common.UserID(r.Context()); ok {
		return "user:" + uid
	}
	if session := strings.TrimSpace(r.Header.Get("X-Session-ID")); session != "" {
		return "session:" + session
	}
	return ByClientIP(r)
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter *limiter.Limiter
	Scope   string
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface. Limiter
// failures let the request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Key(r)
		if h.Scope != "" {
			key = h.Scope + ":" + key
		}
		lctx, err := h.Limiter.Get(r.Context(), key)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := time.Until(time.Unix(lctx.Reset, 0)).Seconds()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(int(retryAfter)))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
