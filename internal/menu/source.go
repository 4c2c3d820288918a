package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/tenant"
)

var (
	// ErrStoreNotFound is returned when the requested store does not exist.
	ErrStoreNotFound = errors.New("menu: store not found")
	// ErrStoreRequired is returned when a request names no store and no
	// default store is configured.
	ErrStoreRequired = errors.New("menu: store required")
	// ErrProductNotFound is returned when a product id is not on the menu.
	ErrProductNotFound = errors.New("menu: product not found")
)

// Source loads raw store and menu data.
type Source interface {
	Stores(ctx context.Context) ([]Store, error)
	Store(ctx context.Context, storeID string) (Store, error)
	Categories(ctx context.Context, store Store) ([]Category, error)
}

// Menu is the normalised catalogue of one store.
type Menu struct {
	Store      Store      `json:"store"`
	Categories []Category `json:"categories"`
}

// Product looks up an orderable product.
func (m Menu) Product(id string) (Product, error) {
	p, ok := FindProduct(m.Categories, id)
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

const storesKey = "menu:stores"

// Service serves store and menu data with a Redis read-through cache. Each
// call is scoped to the store carried by the context, or to StoreID.
type Service struct {
	Source  Source
	StoreID string
	Cache   *Cache
	Logger  zerolog.Logger
}

// storeID names the store the call is scoped to.
func (s *Service) storeID(ctx context.Context) (string, error) {
	if id, ok := tenant.FromContext(ctx); ok {
		return id, nil
	}
	if s.StoreID != "" {
		return s.StoreID, nil
	}
	return "", ErrStoreRequired
}

func menuKey(storeID string) string  { return "menu:" + storeID }
func storeKey(storeID string) string { return "menu:store:" + storeID }

// Stores lists the active stores customers can pick from.
func (s *Service) Stores(ctx context.Context) ([]Store, error) {
	if s == nil || s.Source == nil {
		return nil, errors.New("menu: source not configured")
	}
	var cached []Store
	if ok, err := s.Cache.GetJSON(ctx, storesKey, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Msg("menu cache read failed")
	}
	all, err := s.Source.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("menu: load stores: %w", err)
	}
	stores := make([]Store, 0, len(all))
	for _, st := range all {
		if st.Active() {
			stores = append(stores, st)
		}
	}
	if err := s.Cache.SetJSON(ctx, storesKey, stores); err != nil {
		s.Logger.Warn().Err(err).Msg("menu cache write failed")
	}
	return stores, nil
}

// Store returns the store snapshot, from cache when available.
func (s *Service) Store(ctx context.Context) (Store, error) {
	id, err := s.storeID(ctx)
	if err != nil {
		return Store{}, err
	}
	var cached Store
	if ok, err := s.Cache.GetJSON(ctx, storeKey(id), &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Str("store_id", id).Msg("menu cache read failed")
	}
	store, err := s.FreshStore(ctx)
	if err != nil {
		return Store{}, err
	}
	if err := s.Cache.SetJSON(ctx, storeKey(id), store); err != nil {
		s.Logger.Warn().Err(err).Str("store_id", id).Msg("menu cache write failed")
	}
	return store, nil
}

// FreshStore bypasses the cache. Checkout uses it to read the current
// opening state.
func (s *Service) FreshStore(ctx context.Context) (Store, error) {
	if s == nil || s.Source == nil {
		return Store{}, errors.New("menu: source not configured")
	}
	id, err := s.storeID(ctx)
	if err != nil {
		return Store{}, err
	}
	store, err := s.Source.Store(ctx, id)
	if err != nil {
		return Store{}, err
	}
	if !store.Active() {
		return Store{}, fmt.Errorf("%w: %s is inactive", ErrStoreNotFound, id)
	}
	return store, nil
}

// Menu returns the normalised menu.
func (s *Service) Menu(ctx context.Context) (Menu, error) {
	id, err := s.storeID(ctx)
	if err != nil {
		return Menu{}, err
	}
	var cached Menu
	if ok, err := s.Cache.GetJSON(ctx, menuKey(id), &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Str("store_id", id).Msg("menu cache read failed")
	}

	store, err := s.Store(ctx)
	if err != nil {
		return Menu{}, err
	}
	categories, err := s.Source.Categories(ctx, store)
	if err != nil {
		return Menu{}, fmt.Errorf("menu: load categories: %w", err)
	}
	m := Menu{Store: store, Categories: Normalize(categories)}
	if err := s.Cache.SetJSON(ctx, menuKey(id), m); err != nil {
		s.Logger.Warn().Err(err).Str("store_id", id).Msg("menu cache write failed")
	}
	return m, nil
}

// Product returns one orderable product from the menu.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	m, err := s.Menu(ctx)
	if err != nil {
		return Product{}, err
	}
	return m.Product(id)
}

// Invalidate drops the cached store, menu and store list of the scoped store.
func (s *Service) Invalidate(ctx context.Context) error {
	id, err := s.storeID(ctx)
	if err != nil {
		return s.Cache.Delete(ctx, storesKey)
	}
	return s.Cache.Delete(ctx, menuKey(id), storeKey(id), storesKey)
}
