package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	store, err := NewStore(nil, "test")
	require.NoError(t, err)
	lim, err := New(store, "1-M")
	require.NoError(t, err)

	counted := Handler{Limiter: lim, Scope: "checkout", Key: func(*http.Request) string { return "static" }}.Middleware(okHandler())

	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, httptest.NewRequest(http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "1", rr1.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, httptest.NewRequest(http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

func TestRedisStoreKeysPerCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client, "rl")
	require.NoError(t, err)
	lim, err := New(store, "1-H")
	require.NoError(t, err)
	h := Handler{Limiter: lim, Key: ByCaller}.Middleware(okHandler())

	send := func(r *http.Request) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		return rr.Code
	}
	withUser := func(uid string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		return r.WithContext(common.WithUserID(r.Context(), uid))
	}

	require.Equal(t, http.StatusOK, send(withUser("u1")))
	require.Equal(t, http.StatusTooManyRequests, send(withUser("u1")))
	require.Equal(t, http.StatusOK, send(withUser("u2")))
}

func TestByCallerFallbacks(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/cart", nil)
	r.Header.Set("X-Session-ID", "abc")
	require.Equal(t, "session:abc", ByCaller(r))

	r = httptest.NewRequest(http.MethodGet, "/cart", nil)
	require.Equal(t, ByClientIP(r), ByCaller(r))
}

func TestInvalidRate(t *testing.T) {
	store, err := NewStore(nil, "")
	require.NoError(t, err)
	_, err = New(store, "ten per minute")
	require.Error(t, err)
}
