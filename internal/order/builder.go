// Package order turns a cart snapshot and checkout metadata into the payload
// accepted by the order service, and submits it.
package order

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Meta is the order-level information collected at checkout.
type Meta struct {
	Type            pricing.OrderType `json:"orderType" validate:"required,oneof=dine_in takeaway delivery"`
	CustomerName    string            `json:"customerName" validate:"required,max=120"`
	CustomerPhone   string            `json:"customerPhone" validate:"required,max=32"`
	DeliveryAddress string            `json:"deliveryAddress" validate:"required_if=Type delivery,max=500"`
	Note            string            `json:"note" validate:"max=500"`
	UserID          string            `json:"-"`
}

// Customization is the nested record the order service stores per item.
type Customization struct {
	Variant            *menu.Variant     `json:"variant"`
	Options            []menu.OptionItem `json:"options"`
	RemovedIngredients []string          `json:"removed_ingredients"`
}

// Item is one submitted line. Price is the unit price actually charged.
type Item struct {
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name"`
	Quantity    int           `json:"quantity"`
	Price       pricing.Money `json:"price"`
	Options     Customization `json:"options"`
}

// Submission is the complete order payload.
type Submission struct {
	ClientReference string            `json:"client_reference"`
	StoreID         string            `json:"store_id"`
	BrandID         string            `json:"brand_id,omitempty"`
	UserID          string            `json:"user_id,omitempty"`
	OrderType       pricing.OrderType `json:"order_type"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	DeliveryAddress *string           `json:"delivery_address"`
	Note            *string           `json:"note"`
	Items           []Item            `json:"items"`
	Subtotal        pricing.Money     `json:"subtotal"`
	DeliveryFee     pricing.Money     `json:"delivery_fee"`
	TotalAmount     pricing.Money     `json:"total_amount"`
}

// Builder validates checkout metadata and snapshots cart lines into a
// Submission. It never performs network calls.
type Builder struct {
	NewID func() string

	once     sync.Once
	validate *validator.Validate
}

func (b *Builder) validator() *validator.Validate {
	b.once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		b.validate = v
	})
	return b.validate
}

// Build validates meta and returns the payload for lines. Name and phone
// are always required; the delivery address only for delivery orders, and
// it is dropped from the payload for other order types.
func (b *Builder) Build(lines []cart.Line, meta Meta, store menu.Store) (Submission, error) {
	meta = normalizeMeta(meta)
	if err := b.validator().Struct(meta); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return Submission{}, &ValidationError{Field: fieldErrs[0].Field(), Rule: fieldErrs[0].Tag()}
		}
		return Submission{}, err
	}
	if len(lines) == 0 {
		return Submission{}, ErrEmptyCart
	}

	newID := b.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	sub := Submission{
		ClientReference: newID(),
		StoreID:         store.ID,
		BrandID:         store.BrandID,
		UserID:          meta.UserID,
		OrderType:       meta.Type,
		CustomerName:    meta.CustomerName,
		CustomerPhone:   meta.CustomerPhone,
		Items:           make([]Item, 0, len(lines)),
	}
	if meta.Type == pricing.Delivery {
		addr := meta.DeliveryAddress
		sub.DeliveryAddress = &addr
	}
	if meta.Note != "" {
		note := meta.Note
		sub.Note = &note
	}
	for _, l := range lines {
		sub.Items = append(sub.Items, itemFromLine(l))
	}
	summary := pricing.Compute(cart.Items(lines), meta.Type, store.DeliveryFee)
	sub.Subtotal = summary.Subtotal
	sub.DeliveryFee = summary.DeliveryFee
	sub.TotalAmount = summary.Total
	return sub, nil
}

func normalizeMeta(meta Meta) Meta {
	if parsed, err := pricing.ParseOrderType(string(meta.Type)); err == nil {
		meta.Type = parsed
	}
	meta.CustomerName = strings.TrimSpace(meta.CustomerName)
	meta.CustomerPhone = strings.TrimSpace(meta.CustomerPhone)
	meta.DeliveryAddress = strings.TrimSpace(meta.DeliveryAddress)
	meta.Note = strings.TrimSpace(meta.Note)
	meta.UserID = strings.TrimSpace(meta.UserID)
	return meta
}

func itemFromLine(l cart.Line) Item {
	custom := Customization{
		Options:            append([]menu.OptionItem{}, l.Options...),
		RemovedIngredients: append([]string{}, l.RemovedIngredients...),
	}
	if l.Variant != nil {
		v := *l.Variant
		custom.Variant = &v
	}
	return Item{
		ProductID:   l.ProductID,
		ProductName: l.Name,
		Quantity:    l.Quantity,
		Price:       l.UnitPrice,
		Options:     custom,
	}
}
