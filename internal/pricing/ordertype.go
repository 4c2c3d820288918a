package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOrderType is returned for an order type outside the known set.
var ErrUnknownOrderType = errors.New("pricing: unknown order type")

// OrderType is how the customer receives the order.
type OrderType string

const (
	DineIn   OrderType = "dine_in"
	Takeaway OrderType = "takeaway"
	Delivery OrderType = "delivery"
)

// ParseOrderType accepts the canonical values case-insensitively, with
// hyphens tolerated in place of underscores.
func ParseOrderType(value string) (OrderType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	t := OrderType(normalized)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOrderType, value)
	}
	return t, nil
}

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	switch t {
	case DineIn, Takeaway, Delivery:
		return true
	default:
		return false
	}
}
