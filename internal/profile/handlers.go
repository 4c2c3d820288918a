package profile

import (
	"errors"
	"net/http"

	"github.com/noah-isme/storefront/internal/common"
)

// Handler exposes the current user's profile.
type Handler struct {
	Service *Service
}

// Get handles GET /api/v1/me/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "profile service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	p, err := h.Service.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Update handles PATCH /api/v1/me/profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "profile service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	var req Update
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	p, err := h.Service.Update(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "profile service is temporarily unavailable", nil)
	}
}
