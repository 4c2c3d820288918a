package menu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/backend"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/tenant"
)

func TestNormalizeOrdersAndDefaults(t *testing.T) {
	src := FileSource{Path: "testdata/menu.yaml"}
	cats, err := src.Categories(context.Background(), Store{})
	require.NoError(t, err)

	out := Normalize(cats)
	require.Len(t, out, 2)
	require.Equal(t, "cat-burgers", out[0].ID)

	burgers := out[0].Products
	require.Len(t, burgers, 2, "unavailable products are dropped")
	require.Equal(t, "burger", burgers[0].ID)
	require.Equal(t, "zinger", burgers[1].ID)

	zinger := burgers[1]
	sauces, ok := zinger.Group("sauces")
	require.True(t, ok)
	require.Equal(t, ModeMulti, sauces.Mode())
	require.Equal(t, "mayo", sauces.Items[0].ID, "items sorted by price")

	bread, ok := zinger.Group("bread")
	require.True(t, ok)
	require.Equal(t, 1, bread.Max, "max defaults to one")
	require.Equal(t, ModeSingle, bread.Mode())
	require.Equal(t, pricing.Money(250), bread.Items[1].Price)

	require.Equal(t, 3, len(cats[1].Products), "input is not modified")
}

func TestFileSourceStore(t *testing.T) {
	src := FileSource{Path: "testdata/menu.yaml"}
	store, err := src.Store(context.Background(), "store-1")
	require.NoError(t, err)
	require.Equal(t, pricing.Units(10), store.DeliveryFee)
	require.True(t, store.IsOpen)

	_, err = src.Store(context.Background(), "other")
	require.ErrorIs(t, err, ErrStoreNotFound)
}

type countingSource struct {
	Source
	calls int
}

func (c *countingSource) Categories(ctx context.Context, store Store) ([]Category, error) {
	c.calls++
	return c.Source.Categories(ctx, store)
}

func TestServiceCachesMenu(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	src := &countingSource{Source: FileSource{Path: "testdata/menu.yaml"}}
	svc := &Service{Source: src, StoreID: "store-1", Cache: NewCache(rdb, time.Minute)}

	ctx := context.Background()
	first, err := svc.Menu(ctx)
	require.NoError(t, err)
	second, err := svc.Menu(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
	require.Equal(t, first, second)

	p, err := svc.Product(ctx, "zinger")
	require.NoError(t, err)
	require.Len(t, p.Variants, 1)

	_, err = svc.Product(ctx, "retired")
	require.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Menu(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestHTTPSourceFlattensLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/stores":
			_, _ = w.Write([]byte(`[{"id":"store-1","brand_id":"brand-1","name":"S","delivery_fees":"7.5","is_open":false}]`))
		case "/rest/v1/categories":
			if r.URL.Query().Get("brand_id") != "eq.brand-1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`[{"id":"c1","name":"Burgers","rank":1,"products":[{"id":"p1","name":"Zinger","price":40,
				"product_option_links":[{"group":{"id":"g1","name":"Sauces","min_selection":1,"max_selection":2,"items":[{"id":"i1","name":"BBQ","price":5}]}},{"group":null}],
				"product_ingredients":[{"ingredient":{"id":"ing1","name":"Onion"}}]}]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := HTTPSource{Client: &backend.Client{BaseURL: srv.URL, APIKey: "k"}}
	ctx := context.Background()
	store, err := src.Store(ctx, "store-1")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(750), store.DeliveryFee)
	require.False(t, store.IsOpen)

	cats, err := src.Categories(ctx, store)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	p := cats[0].Products[0]
	require.Equal(t, "c1", p.CategoryID)
	require.Len(t, p.OptionGroups, 1)
	require.Equal(t, 1, p.OptionGroups[0].Min)
	require.Equal(t, 2, p.OptionGroups[0].Max)
	require.Equal(t, "Onion", p.Ingredients[0].Name)
}

func TestHandlerMenuEnvelope(t *testing.T) {
	h := &Handler{Service: &Service{Source: FileSource{Path: "testdata/menu.yaml"}, StoreID: "store-1"}}
	rec := httptest.NewRecorder()
	h.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Menu `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "Chez Test", body.Data.Store.Name)
	require.Len(t, body.Data.Categories, 2)

	missing := &Handler{Service: &Service{Source: FileSource{Path: "testdata/menu.yaml"}, StoreID: "nope"}}
	rec = httptest.NewRecorder()
	missing.Store(rec, httptest.NewRequest(http.MethodGet, "/api/v1/store", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServiceScopesToContextStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := &Service{Source: FileSource{Path: "testdata/stores.yaml"}, Cache: NewCache(rdb, time.Minute)}

	_, err := svc.Store(context.Background())
	require.ErrorIs(t, err, ErrStoreRequired)

	stores, err := svc.Stores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2, "inactive stores are hidden")
	require.Equal(t, "Chez Test", stores[0].BrandName)
	require.True(t, mr.Exists("menu:stores"))

	marina := tenant.WithStore(context.Background(), "store-2")
	st, err := svc.Store(marina)
	require.NoError(t, err)
	require.Equal(t, pricing.Units(15), st.DeliveryFee)
	require.False(t, st.IsOpen)
	m, err := svc.Menu(marina)
	require.NoError(t, err)
	require.Equal(t, "store-2", m.Store.ID)
	require.True(t, mr.Exists("menu:store-2"))
	require.False(t, mr.Exists("menu:store-1"))

	_, err = svc.Store(tenant.WithStore(context.Background(), "store-3"))
	require.ErrorIs(t, err, ErrStoreNotFound)

	require.NoError(t, svc.Invalidate(marina))
	require.False(t, mr.Exists("menu:store-2"))
	require.False(t, mr.Exists("menu:store:store-2"))
	require.False(t, mr.Exists("menu:stores"))
}

func TestHTTPSourceStoresJoinBrand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/rest/v1/stores" || q.Get("select") != "*,brands(name)" || q.Get("is_active") != "eq.true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"s1","name":"Centre","delivery_fees":null,"brands":{"name":"Universal Eats"}},{"id":"s2","name":"Gare","brands":null}]`))
	}))
	defer srv.Close()

	src := HTTPSource{Client: &backend.Client{BaseURL: srv.URL, APIKey: "k"}}
	stores, err := src.Stores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2)
	require.Equal(t, "Universal Eats", stores[0].BrandName)
	require.Equal(t, pricing.Money(0), stores[0].DeliveryFee)
	require.Empty(t, stores[1].BrandName)
}

func TestHandlerStores(t *testing.T) {
	h := &Handler{Service: &Service{Source: FileSource{Path: "testdata/stores.yaml"}}}
	rec := httptest.NewRecorder()
	h.Stores(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stores", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Store `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 2)

	rec = httptest.NewRecorder()
	h.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "STORE_REQUIRED")
}
