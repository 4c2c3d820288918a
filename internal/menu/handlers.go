package menu

import (
	"errors"
	"net/http"

	"github.com/noah-isme/storefront/internal/common"
)

// Handler exposes the menu over HTTP.
type Handler struct {
	Service *Service
}

// Menu handles GET /api/v1/menu.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu service not configured", nil)
		return
	}
	m, err := h.Service.Menu(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, m)
}

// Stores handles GET /api/v1/stores.
func (h *Handler) Stores(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu service not configured", nil)
		return
	}
	stores, err := h.Service.Stores(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, stores)
}

// Store handles GET /api/v1/store.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu service not configured", nil)
		return
	}
	store, err := h.Service.Store(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, store)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrStoreRequired):
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "pick a store with the X-Store-ID header", nil)
	case errors.Is(err, ErrStoreNotFound), errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "menu is temporarily unavailable", nil)
	}
}
