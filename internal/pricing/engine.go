package pricing

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal    Money `json:"subtotal"`
	DeliveryFee Money `json:"deliveryFee"`
	Total       Money `json:"total"`
}

// UnitPrice returns the price of one unit: the variant price when a variant is
// chosen, otherwise the base price, plus every chosen option occurrence.
func UnitPrice(base Money, variant *Money, options ...Money) Money {
	unit := base
	if variant != nil {
		unit = *variant
	}
	for _, opt := range options {
		unit += opt
	}
	return unit
}

// LineTotal multiplies a unit price by a quantity. Non-positive quantities
// contribute nothing.
func LineTotal(unit Money, qty int) Money {
	if qty <= 0 {
		return 0
	}
	return unit * Money(qty)
}

// Subtotal sums the line totals of items.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		subtotal += LineTotal(it.UnitPrice, it.Qty)
	}
	return subtotal
}

// DeliveryFee yields the store fee for delivery orders and zero for every
// other order type.
func DeliveryFee(orderType OrderType, storeFee Money) Money {
	if orderType != Delivery || storeFee < 0 {
		return 0
	}
	return storeFee
}

// GrandTotal is the subtotal plus the applicable delivery fee.
func GrandTotal(items []Item, orderType OrderType, storeFee Money) Money {
	return Subtotal(items) + DeliveryFee(orderType, storeFee)
}

// Compute calculates cart totals for the order type.
func Compute(items []Item, orderType OrderType, storeFee Money) Summary {
	subtotal := Subtotal(items)
	fee := DeliveryFee(orderType, storeFee)
	return Summary{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal + fee,
	}
}
