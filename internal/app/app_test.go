package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/config"
)

const testSecret = "super-secret-signing-key"

type fakeBackend struct {
	orders atomic.Int32
	body   atomic.Value
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/cust_profiles":
		_, _ = w.Write([]byte(`[{"id":"user-1","full_name":"Sara","phone":"0600000000","address":"1 Rue A"}]`))
	case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/rpc/create_order":
		b.orders.Add(1)
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		b.body.Store(buf.String())
		_, _ = w.Write([]byte(`{"order_id":"ord-1","order_number":1042}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}
}

func newTestApp(t *testing.T, overrides map[string]string) (*App, *fakeBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	env := map[string]string{
		"BACKEND_URL":           srv.URL,
		"BACKEND_API_KEY":       "anon-key",
		"STORE_ID":              "store-1",
		"MENU_FILE":             "../menu/testdata/menu.yaml",
		"CART_STORE":            "redis",
		"CART_STORE_DIR":        t.TempDir(),
		"REDIS_URL":             "redis://" + mr.Addr(),
		"JWT_SECRET":            testSecret,
		"JWT_ISSUER":            "",
		"OBS_ENABLE_PROMETHEUS": "false",
		"OBS_ENABLE_TRACING":    "false",
		"CHECKOUT_RATE_LIMIT":   "5-M",
		"API_RATE_LIMIT":        "100-M",
		"CORS_ALLOWED_ORIGINS":  "https://shop.example",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, backend, mr
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Subject(subject).
		Audience([]string{"authenticated"}).
		Claim("role", "authenticated").
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return "Bearer " + string(signed)
}

func call(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/api/v1/cart/session", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		Data struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.NotEmpty(t, out.Data.SessionID)
	return out.Data.SessionID
}

func TestHealthAndMenu(t *testing.T) {
	a, _, _ := newTestApp(t, nil)

	rec := call(t, a.Handler, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, a.Handler, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"redis":"ok"`)

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/menu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var menuBody struct {
		Data struct {
			Categories []struct {
				ID string `json:"id"`
			} `json:"categories"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&menuBody))
	require.NotEmpty(t, menuBody.Data.Categories)
	require.Equal(t, "cat-burgers", menuBody.Data.Categories[0].ID)

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/store", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCartPersistsAcrossRestart(t *testing.T) {
	a, _, mr := newTestApp(t, nil)
	session := newSession(t, a.Handler)
	headers := map[string]string{"X-Session-ID": session}

	rec := call(t, a.Handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"cola","quantity":2}`, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cfg := *a.Config
	cfg.RedisURL = "redis://" + mr.Addr()
	b, err := New(context.Background(), &cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	rec = call(t, b.Handler, http.MethodGet, "/api/v1/cart?orderType=takeaway", "", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var cartBody struct {
		Data struct {
			Lines []struct {
				Quantity int `json:"quantity"`
			} `json:"lines"`
			Pricing struct {
				Total json.Number `json:"total"`
			} `json:"pricing"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cartBody))
	require.Len(t, cartBody.Data.Lines, 1)
	require.Equal(t, 2, cartBody.Data.Lines[0].Quantity)
	require.Equal(t, "24.00", cartBody.Data.Pricing.Total.String())
}

func TestCheckoutRequiresAuthAndClearsCart(t *testing.T) {
	a, backend, _ := newTestApp(t, nil)
	session := newSession(t, a.Handler)
	headers := map[string]string{"X-Session-ID": session}

	rec := call(t, a.Handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"cola"}`, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, a.Handler, http.MethodPost, "/api/v1/checkout", `{"orderType":"takeaway"}`, headers)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, backend.orders.Load())

	authed := map[string]string{"X-Session-ID": session, "Authorization": bearer(t, "user-1")}
	rec = call(t, a.Handler, http.MethodPost, "/api/v1/checkout", `{"orderType":"takeaway"}`, authed)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"data":{"orderId":"ord-1","orderNumber":"1042","total":12.00,"pricing":{"subtotal":12.00,"deliveryFee":0.00,"total":12.00}}}`, rec.Body.String())
	require.EqualValues(t, 1, backend.orders.Load())
	require.Contains(t, backend.body.Load().(string), `"customer_name":"Sara"`)

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/cart", "", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"lines":[]`)

	n, err := a.Redis.XLen(context.Background(), "storefront:events").Result()
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(3))
}

func TestCheckoutRateLimited(t *testing.T) {
	a, _, _ := newTestApp(t, map[string]string{"CHECKOUT_RATE_LIMIT": "1-M"})
	session := newSession(t, a.Handler)
	authed := map[string]string{"X-Session-ID": session, "Authorization": bearer(t, "user-7")}

	rec := call(t, a.Handler, http.MethodPost, "/api/v1/checkout", `{"orderType":"takeaway"}`, authed)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = call(t, a.Handler, http.MethodPost, "/api/v1/checkout", `{"orderType":"takeaway"}`, authed)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFileStoreWithoutRedis(t *testing.T) {
	a, _, _ := newTestApp(t, map[string]string{"CART_STORE": "file", "REDIS_URL": ""})
	require.Nil(t, a.Redis)
	session := newSession(t, a.Handler)

	rec := call(t, a.Handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"zinger","options":[{"groupId":"bread","itemId":"classic"}]}`, map[string]string{"X-Session-ID": session})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/me/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStoreSelectionScopesMenuCartAndCheckout(t *testing.T) {
	a, backend, _ := newTestApp(t, map[string]string{"STORE_ID": "", "MENU_FILE": "../menu/testdata/stores.yaml"})
	session := newSession(t, a.Handler)

	rec := call(t, a.Handler, http.MethodGet, "/api/v1/stores", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var storesBody struct {
		Data []struct {
			ID        string `json:"id"`
			BrandName string `json:"brand_name"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&storesBody))
	require.Len(t, storesBody.Data, 2)
	require.Equal(t, "Chez Test", storesBody.Data[0].BrandName)

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/menu", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "STORE_REQUIRED")

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/menu", "", map[string]string{"X-Store-ID": "bad:id"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	centre := map[string]string{"X-Session-ID": session, "X-Store-ID": "store-1"}
	marina := map[string]string{"X-Session-ID": session, "X-Store-ID": "store-2"}

	rec = call(t, a.Handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"cola"}`, centre)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/cart", "", marina)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"lines":[]`, "each store keeps its own cart")

	rec = call(t, a.Handler, http.MethodGet, "/api/v1/checkout/quote?orderType=delivery", "", centre)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":22.00`)

	marina["Authorization"] = bearer(t, "user-1")
	rec = call(t, a.Handler, http.MethodPost, "/api/v1/checkout", `{"orderType":"takeaway"}`, marina)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "STORE_CLOSED")

	centre["Authorization"] = bearer(t, "user-1")
	rec = call(t, a.Handler, http.MethodPost, "/api/v1/checkout", `{"orderType":"takeaway"}`, centre)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, backend.body.Load().(string), `"store_id":"store-1"`)
}
