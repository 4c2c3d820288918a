// Package checkout prices carts for an order type and submits them as orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/auth"
	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/events"
	"github.com/noah-isme/storefront/internal/lock"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/profile"
)

var (
	// ErrStoreClosed is returned when the store does not accept orders.
	ErrStoreClosed = errors.New("checkout: store is closed")
	// ErrUnauthenticated is returned when no user places the order.
	ErrUnauthenticated = errors.New("checkout: authentication required")
	// ErrInProgress is returned while another checkout of the same cart runs.
	ErrInProgress = errors.New("checkout: already in progress")
)

// StoreReader reads the snapshot of the store the request is scoped to.
// FreshStore bypasses caches; Invalidate drops them.
type StoreReader interface {
	Store(ctx context.Context) (menu.Store, error)
	FreshStore(ctx context.Context) (menu.Store, error)
	Invalidate(ctx context.Context) error
}

// Prefiller supplies stored contact details for a user.
type Prefiller interface {
	Prefill(ctx context.Context, userID string) (profile.Profile, error)
}

// Locker runs fn while holding key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Request is the checkout form.
type Request struct {
	OrderType       string `json:"orderType"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	DeliveryAddress string `json:"deliveryAddress"`
	Note            string `json:"note"`
}

// Result is returned after the order service accepted the order.
type Result struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Total       pricing.Money   `json:"total"`
	Pricing     pricing.Summary `json:"pricing"`
}

// Quote is the priced cart for an order type.
type Quote struct {
	OrderType pricing.OrderType `json:"orderType"`
	Pricing   pricing.Summary   `json:"pricing"`
	StoreOpen bool              `json:"storeOpen"`
	Lines     int               `json:"lines"`
}

// Service orchestrates checkout.
type Service struct {
	Menu     StoreReader
	Builder  *order.Builder
	Orders   order.Submitter
	Profiles Prefiller
	Locker   Locker
	LockTTL  time.Duration
	Events   *events.Bus
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote prices the cart for orderType using the cached store snapshot.
func (s *Service) Quote(ctx context.Context, c *cart.Store, orderType pricing.OrderType) (Quote, error) {
	store, err := s.Menu.Store(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("checkout: load store: %w", err)
	}
	return Quote{
		OrderType: orderType,
		Pricing:   c.Summary(orderType, store.DeliveryFee),
		StoreOpen: store.IsOpen,
		Lines:     c.Len(),
	}, nil
}

// PlaceOrder submits the cart of sessionID on behalf of userID. The cart is
// cleared only after the order service acknowledged the order; any failure
// leaves it untouched.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, c *cart.Store, userID string, req Request) (Result, error) {
	start := s.now()
	res, err := s.placeOrder(ctx, sessionID, c, userID, req)
	obs.ObserveOrderSubmit(float64(s.now().Sub(start).Milliseconds()))
	obs.IncOrderSubmission(outcome(err))
	s.emit(ctx, sessionID, res, err)
	return res, err
}

func (s *Service) placeOrder(ctx context.Context, sessionID string, c *cart.Store, userID string, req Request) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, ErrUnauthenticated
	}
	store, err := s.Menu.FreshStore(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: load store: %w", err)
	}
	if !store.IsOpen {
		// The cached snapshot may still advertise the store as open.
		if err := s.Menu.Invalidate(ctx); err != nil {
			s.Logger.Warn().Err(err).Str("store_id", store.ID).Msg("store cache not invalidated")
		}
		return Result{}, ErrStoreClosed
	}
	meta := s.prefill(ctx, userID, req)

	var res Result
	run := func(ctx context.Context) error {
		c.Refresh(ctx)
		sub, err := s.Builder.Build(c.Lines(), meta, store)
		if err != nil {
			return err
		}
		ack, err := s.Orders.Submit(ctx, sub)
		if err != nil {
			return err
		}
		c.Clear(ctx)
		res = Result{
			OrderID:     ack.OrderID,
			OrderNumber: ack.OrderNumber,
			Total:       sub.TotalAmount,
			Pricing:     pricing.Summary{Subtotal: sub.Subtotal, DeliveryFee: sub.DeliveryFee, Total: sub.TotalAmount},
		}
		return nil
	}
	if s.Locker == nil {
		return res, run(ctx)
	}
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	err = s.Locker.WithLock(ctx, sessionID, ttl, run)
	if errors.Is(err, lock.ErrLocked) {
		return Result{}, ErrInProgress
	}
	return res, err
}

// prefill completes missing contact fields from the stored profile, then
// from the token metadata.
func (s *Service) prefill(ctx context.Context, userID string, req Request) order.Meta {
	meta := order.Meta{
		Type:            pricing.OrderType(req.OrderType),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Note:            req.Note,
		UserID:          userID,
	}
	if s.Profiles != nil && (meta.CustomerName == "" || meta.CustomerPhone == "" || meta.DeliveryAddress == "") {
		p, err := s.Profiles.Prefill(ctx, userID)
		if err != nil {
			s.Logger.Warn().Err(err).Str("user_id", userID).Msg("profile prefill unavailable")
		} else {
			meta.CustomerName = firstNonEmpty(meta.CustomerName, p.FullName)
			meta.CustomerPhone = firstNonEmpty(meta.CustomerPhone, p.Phone)
			meta.DeliveryAddress = firstNonEmpty(meta.DeliveryAddress, p.Address)
		}
	}
	if claims, ok := auth.ClaimsFrom(ctx); ok {
		meta.CustomerName = firstNonEmpty(meta.CustomerName, claims.FullName)
		meta.CustomerPhone = firstNonEmpty(meta.CustomerPhone, claims.Phone)
	}
	return meta
}

func (s *Service) emit(ctx context.Context, sessionID string, res Result, err error) {
	if s.Events == nil {
		return
	}
	var subErr *order.SubmissionError
	switch {
	case err == nil:
		_, err = s.Events.Emit(ctx, events.TopicOrderSubmitted, sessionID, res)
	case errors.As(err, &subErr):
		_, err = s.Events.Emit(ctx, events.TopicOrderFailed, sessionID, map[string]any{
			"reason": subErr.Reason,
			"status": subErr.Status,
		})
	default:
		return
	}
	if err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("checkout event not emitted")
	}
}

func outcome(err error) string {
	var subErr *order.SubmissionError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &subErr):
		return "rejected"
	case errors.Is(err, order.ErrValidation), errors.Is(err, order.ErrEmptyCart):
		return "invalid"
	case errors.Is(err, ErrStoreClosed):
		return "closed"
	case errors.Is(err, ErrInProgress):
		return "busy"
	default:
		return "error"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
