// Package tenant scopes a request to the store the customer picked. Menus,
// carts and orders all belong to one store.
package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/storefront/internal/common"
)

// Header carries the store id chosen by the client.
const Header = "X-Store-ID"

// ErrInvalidStoreID is returned for store ids that cannot be used in keys.
var ErrInvalidStoreID = errors.New("tenant: invalid store id")

type contextKey struct{}

// Resolver reads the store from the request header and falls back to a
// default store when the client did not pick one.
type Resolver struct {
	HeaderName   string
	DefaultStore string

	validate *validator.Validate
}

// NewResolver returns a resolver for headerName. An empty headerName uses
// X-Store-ID.
func NewResolver(headerName, defaultStore string) *Resolver {
	if headerName == "" {
		headerName = Header
	}
	return &Resolver{
		HeaderName:   headerName,
		DefaultStore: strings.TrimSpace(defaultStore),
		validate:     validator.New(),
	}
}

// Middleware injects the resolved store into the request context. Malformed
// ids are rejected with 400 INVALID_STORE.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		storeID, err := r.Resolve(req)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_STORE", "the "+r.HeaderName+" header is not a valid store id", nil)
			return
		}
		if storeID != "" {
			req = req.WithContext(WithStore(req.Context(), storeID))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve returns the store named by the header, or the default store.
func (r *Resolver) Resolve(req *http.Request) (string, error) {
	if r == nil || req == nil {
		return "", nil
	}
	storeID := strings.TrimSpace(req.Header.Get(r.HeaderName))
	if storeID == "" {
		return r.DefaultStore, nil
	}
	if r.validate == nil {
		r.validate = validator.New()
	}
	// Store ids end up inside cache and storage keys.
	if err := r.validate.Var(storeID, "max=64,printascii"); err != nil || strings.ContainsAny(storeID, ":/\\ ") {
		return "", ErrInvalidStoreID
	}
	return storeID, nil
}

// WithStore stores the store id inside the context.
func WithStore(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, storeID)
}

// FromContext extracts the store id from the context if available.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	storeID, ok := ctx.Value(contextKey{}).(string)
	if !ok || strings.TrimSpace(storeID) == "" {
		return "", false
	}
	return storeID, true
}

// PrefixKey namespaces key by store.
func PrefixKey(storeID, key string) string {
	if storeID == "" {
		return key
	}
	return storeID + ":" + key
}
