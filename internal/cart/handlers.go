package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/selection"
	"github.com/noah-isme/storefront/internal/tenant"
)

// SessionHeader carries the anonymous cart session id.
const SessionHeader = "X-Session-ID"

// ErrSessionRequired is returned when a request carries neither a user nor a session id.
var ErrSessionRequired = errors.New("cart: session id required")

// Catalog resolves products and the store snapshot for cart operations.
type Catalog interface {
	Product(ctx context.Context, id string) (menu.Product, error)
	Store(ctx context.Context) (menu.Store, error)
}

// Handler wires cart sessions to HTTP.
type Handler struct {
	Sessions *Sessions
	Menu     Catalog
	Validate *validator.Validate
	Currency string
}

// ResolveSession names the cart session of a request. The cart belongs to
// the client device, so a valid X-Session-ID wins; authenticated callers
// without one fall back to a per-user cart. Carts are kept per store, so the
// id is prefixed with the store the request is scoped to.
func ResolveSession(r *http.Request) (string, error) {
	storeID, _ := tenant.FromContext(r.Context())
	if raw := strings.TrimSpace(r.Header.Get(SessionHeader)); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return tenant.PrefixKey(storeID, "anon:"+id.String()), nil
		}
	}
	if uid, ok := common.UserID(r.Context()); ok {
		return tenant.PrefixKey(storeID, "user:"+uid), nil
	}
	return "", ErrSessionRequired
}

type lineView struct {
	Line
	LineTotal pricing.Money `json:"lineTotal"`
}

type cartView struct {
	Version   uint64            `json:"version"`
	Lines     []lineView        `json:"lines"`
	OrderType pricing.OrderType `json:"orderType"`
	Pricing   pricing.Summary   `json:"pricing"`
	Currency  string            `json:"currency,omitempty"`
}

type addItemRequest struct {
	ProductID          string             `json:"productId" validate:"required"`
	VariantID          string             `json:"variantId"`
	Options            []selection.Choice `json:"options" validate:"dive"`
	RemovedIngredients []string           `json:"removedIngredients" validate:"dive,required"`
	Quantity           int                `json:"quantity" validate:"omitempty,min=1,max=99"`
}

// CreateSession issues a fresh anonymous session id.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusCreated, map[string]any{"sessionId": uuid.NewString()})
}

// Get returns the cart lines with a pricing summary for ?orderType= (dine_in by default).
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
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
	h.render(w, r, http.StatusOK, store, orderType)
}

// AddItem builds a customization from the request and merges it into the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var payload addItemRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.ProductID = strings.TrimSpace(payload.ProductID)
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			writeError(w, err)
			return
		}
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	if h.Menu == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu not configured", nil)
		return
	}
	product, err := h.Menu.Product(r.Context(), payload.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	sel, err := selection.Build(product, payload.VariantID, payload.Options, payload.RemovedIngredients)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := store.AddItem(r.Context(), product, sel, payload.Quantity); err != nil {
		writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, store, pricing.DineIn)
}

// Increment adds one unit to a line.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if _, err := store.Increment(r.Context(), chi.URLParam(r, "lineId")); err != nil {
		writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, store, pricing.DineIn)
}

// Decrement removes one unit from a line, never below one.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if _, err := store.Decrement(r.Context(), chi.URLParam(r, "lineId")); err != nil {
		writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, store, pricing.DineIn)
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.RemoveItem(r.Context(), chi.URLParam(r, "lineId")); err != nil {
		writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, store, pricing.DineIn)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	if h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return nil, false
	}
	sessionID, err := ResolveSession(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "send an X-Session-ID header or authenticate", nil)
		return nil, false
	}
	return h.Sessions.Get(r.Context(), sessionID), true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, store *Store, orderType pricing.OrderType) {
	snap := store.Snapshot()
	var fee pricing.Money
	if orderType == pricing.Delivery && h.Menu != nil {
		info, err := h.Menu.Store(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		fee = info.DeliveryFee
	}
	view := cartView{
		Version:   snap.Version,
		Lines:     make([]lineView, 0, len(snap.Lines)),
		OrderType: orderType,
		Pricing:   pricing.Compute(Items(snap.Lines), orderType, fee),
		Currency:  h.Currency,
	}
	for _, l := range snap.Lines {
		view.Lines = append(view.Lines, lineView{Line: l, LineTotal: l.Total()})
	}
	common.Data(w, status, view)
}

func writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	var (
		limitErr *selection.LimitError
		valErr   *selection.ValidationError
		fieldErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &limitErr):
		obs.IncSelectionRejection("limit")
		common.JSONError(w, http.StatusConflict, "SELECTION_LIMIT", err.Error(), map[string]any{
			"groupId": limitErr.GroupID,
			"group":   limitErr.Group,
			"max":     limitErr.Max,
		})
	case errors.As(err, &valErr):
		obs.IncSelectionRejection("bounds")
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), map[string]any{
			"field":    valErr.Group,
			"groupId":  valErr.GroupID,
			"required": valErr.Required,
			"max":      valErr.Max,
			"count":    valErr.Count,
		})
	case errors.As(err, &fieldErr):
		fields := make([]string, 0, len(fieldErr))
		for _, fe := range fieldErr {
			fields = append(fields, fe.Namespace())
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"fields": fields})
	case errors.Is(err, selection.ErrOptionUnavailable):
		obs.IncSelectionRejection("unavailable")
		common.JSONError(w, http.StatusConflict, "OPTION_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, selection.ErrUnknownVariant),
		errors.Is(err, selection.ErrUnknownOption),
		errors.Is(err, selection.ErrUnknownIngredient):
		obs.IncSelectionRejection("unknown")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, menu.ErrProductNotFound), errors.Is(err, menu.ErrStoreNotFound), errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, menu.ErrStoreRequired):
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "pick a store with the X-Store-ID header", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "menu is temporarily unavailable", nil)
	}
}
