package common

import (
	"context"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader is the request header carrying the client's replay key.
const IdempotencyHeader = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. A key is held
// for TTL after a successful response. Failed responses release the key so
// the client may retry with the same value.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func idemKey(r *http.Request, header string) string {
	uid, _ := UserID(r.Context())
	return "idem:" + Fingerprint(uid, r.URL.Path, header)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ctx := r.Context()
		key := idemKey(r, header)
		ok, err := i.R.SetNX(ctx, key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			// the request context may already be cancelled here
			bg := context.WithoutCancel(ctx)
			if rec.status >= http.StatusBadRequest {
				_ = i.R.Del(bg, key).Err()
				return
			}
			_ = i.R.Expire(bg, key, ttl).Err()
		}()
		next.ServeHTTP(rec, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}
