package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnitPriceUsesVariantOverBase(t *testing.T) {
	large := Units(55)
	require.Equal(t, Units(65), UnitPrice(Units(40), &large, Units(5), Units(5)))
	require.Equal(t, Units(45), UnitPrice(Units(40), nil, Units(5)))
	require.Equal(t, Units(40), UnitPrice(Units(40), nil))
}

func TestComputeDeliveryFeeOnlyForDelivery(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: Units(65)},
		{Qty: 1, UnitPrice: 1250},
	}

	dineIn := Compute(items, DineIn, Units(10))
	require.Equal(t, Money(14250), dineIn.Subtotal)
	require.Equal(t, Money(0), dineIn.DeliveryFee)
	require.Equal(t, dineIn.Subtotal, dineIn.Total)

	delivery := Compute(items, Delivery, Units(10))
	require.Equal(t, Units(10), delivery.DeliveryFee)
	require.Equal(t, dineIn.Subtotal+Units(10), delivery.Total)
	require.Equal(t, delivery.Total, GrandTotal(items, Delivery, Units(10)))
}

func TestTakeawayNeverPaysDelivery(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: Units(20)}}
	require.Equal(t, Units(20), GrandTotal(items, Takeaway, Units(10)))
	require.Equal(t, Money(0), DeliveryFee(Delivery, -5))
}

func TestParseOrderType(t *testing.T) {
	got, err := ParseOrderType(" Dine-In ")
	require.NoError(t, err)
	require.Equal(t, DineIn, got)

	_, err = ParseOrderType("drive_through")
	require.ErrorIs(t, err, ErrUnknownOrderType)
}

func TestSubtotalSkipsNonPositiveQuantities(t *testing.T) {
	require.Equal(t, Units(5), Subtotal([]Item{{Qty: 1, UnitPrice: Units(5)}, {Qty: 0, UnitPrice: Units(100)}}))
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		Price Money `json:"price"`
		Fee   Money `json:"fee"`
		Empty Money `json:"empty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":12.5,"fee":"10","empty":null}`), &payload))
	require.Equal(t, Money(1250), payload.Price)
	require.Equal(t, Units(10), payload.Fee)
	require.Equal(t, Money(0), payload.Empty)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"price":12.50,"fee":10.00,"empty":0.00}`, string(out))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("twelve")
	require.Error(t, err)

	m, err := Parse("0.105")
	require.NoError(t, err)
	require.Equal(t, Money(11), m)
}
