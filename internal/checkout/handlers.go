package checkout

import (
	"errors"
	"net/http"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc      *Service
	Sessions *cart.Sessions
	Currency string
}

type quoteView struct {
	Quote
	Currency string `json:"currency,omitempty"`
}

// Quote handles GET /api/v1/checkout/quote?orderType=.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.cart(w, r)
	if !ok {
		return
	}
	orderType := pricing.DineIn
	if raw := r.URL.Query().Get("orderType"); raw != "" {
		parsed, err := pricing.ParseOrderType(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		orderType = parsed
	}
	q, err := h.Svc.Quote(r.Context(), c, orderType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, quoteView{Quote: q, Currency: h.Currency})
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	c, sessionID, ok := h.cart(w, r)
	if !ok {
		return
	}
	var payload Request
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.PlaceOrder(r.Context(), sessionID, c, userID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Sessions.Drop(sessionID)
	common.Data(w, http.StatusCreated, out)
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) (*cart.Store, string, bool) {
	if h.Svc == nil || h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return nil, "", false
	}
	sessionID, err := cart.ResolveSession(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "send an X-Session-ID header or authenticate", nil)
		return nil, "", false
	}
	return h.Sessions.Get(r.Context(), sessionID), sessionID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	var (
		valErr *order.ValidationError
		subErr *order.SubmissionError
	)
	switch {
	case errors.As(err, &valErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), map[string]any{"field": valErr.Field})
	case errors.As(err, &subErr):
		common.JSONError(w, http.StatusBadGateway, "ORDER_REJECTED", subErr.Reason, nil)
	case errors.Is(err, order.ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrStoreClosed):
		common.JSONError(w, http.StatusConflict, "STORE_CLOSED", "the store is not accepting orders right now", nil)
	case errors.Is(err, ErrInProgress):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "this cart is already being submitted", nil)
	case errors.Is(err, menu.ErrStoreRequired):
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "pick a store with the X-Store-ID header", nil)
	case errors.Is(err, menu.ErrStoreNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "store not found", nil)
	case errors.Is(err, ErrUnauthenticated):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "checkout is temporarily unavailable", nil)
	}
}
