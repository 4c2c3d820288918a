package order

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/backend"
	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/pricing"
)

func sampleLines() []cart.Line {
	return []cart.Line{{
		ID:                 "ln_1",
		ProductID:          "p1",
		Name:               "Burger",
		BasePrice:          pricing.Units(40),
		UnitPrice:          pricing.Units(65),
		Quantity:           2,
		Variant:            &menu.Variant{ID: "v1", Name: "Large", Price: pricing.Units(55)},
		Options:            []menu.OptionItem{{ID: "o1", GroupID: "g1", Name: "Cheese", Price: pricing.Units(5)}, {ID: "o1", GroupID: "g1", Name: "Cheese", Price: pricing.Units(5)}},
		RemovedIngredients: []string{"Onion"},
	}}
}

var sampleStore = menu.Store{ID: "store-1", BrandID: "brand-1", DeliveryFee: pricing.Units(10), IsOpen: true}

func TestBuildRequiresNameAndPhone(t *testing.T) {
	b := &Builder{}

	_, err := b.Build(sampleLines(), Meta{Type: pricing.DineIn, CustomerPhone: "0600"}, sampleStore)
	require.ErrorIs(t, err, ErrValidation)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "customerName", vErr.Field)

	_, err = b.Build(sampleLines(), Meta{Type: pricing.DineIn, CustomerName: "  Sara "}, sampleStore)
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "customerPhone", vErr.Field)

	_, err = b.Build(sampleLines(), Meta{Type: "drive", CustomerName: "Sara", CustomerPhone: "0600"}, sampleStore)
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "orderType", vErr.Field)
}

func TestBuildAddressOnlyForDelivery(t *testing.T) {
	b := &Builder{NewID: func() string { return "ref-1" }}
	meta := Meta{Type: pricing.Delivery, CustomerName: "Sara", CustomerPhone: "0600", DeliveryAddress: "   "}

	_, err := b.Build(sampleLines(), meta, sampleStore)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "deliveryAddress", vErr.Field)
	require.Contains(t, err.Error(), "deliveryAddress is required")

	meta.DeliveryAddress = "12 Rue Atlas"
	sub, err := b.Build(sampleLines(), meta, sampleStore)
	require.NoError(t, err)
	require.NotNil(t, sub.DeliveryAddress)
	require.Equal(t, "12 Rue Atlas", *sub.DeliveryAddress)
	require.Equal(t, pricing.Units(130), sub.Subtotal)
	require.Equal(t, pricing.Units(10), sub.DeliveryFee)
	require.Equal(t, pricing.Units(140), sub.TotalAmount)

	meta.Type = "takeaway"
	sub, err = b.Build(sampleLines(), meta, sampleStore)
	require.NoError(t, err)
	require.Nil(t, sub.DeliveryAddress)
	require.Equal(t, pricing.Money(0), sub.DeliveryFee)
	require.Equal(t, sub.Subtotal, sub.TotalAmount)
}

func TestBuildPayloadShape(t *testing.T) {
	b := &Builder{NewID: func() string { return "ref-1" }}
	sub, err := b.Build(sampleLines(), Meta{Type: pricing.DineIn, CustomerName: "Sara", CustomerPhone: "0600", Note: " no ice ", UserID: "u1"}, sampleStore)
	require.NoError(t, err)

	out, err := json.Marshal(sub)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"client_reference":"ref-1",
		"store_id":"store-1",
		"brand_id":"brand-1",
		"user_id":"u1",
		"order_type":"dine_in",
		"customer_name":"Sara",
		"customer_phone":"0600",
		"delivery_address":null,
		"note":"no ice",
		"items":[{
			"product_id":"p1",
			"product_name":"Burger",
			"quantity":2,
			"price":65.00,
			"options":{
				"variant":{"id":"v1","name":"Large","price":55.00},
				"options":[
					{"id":"o1","group_id":"g1","name":"Cheese","price":5.00},
					{"id":"o1","group_id":"g1","name":"Cheese","price":5.00}
				],
				"removed_ingredients":["Onion"]
			}
		}],
		"subtotal":130.00,
		"delivery_fee":0.00,
		"total_amount":130.00
	}`, string(out))
}

func TestBuildEmptyCart(t *testing.T) {
	_, err := (&Builder{}).Build(nil, Meta{Type: pricing.DineIn, CustomerName: "Sara", CustomerPhone: "0600"}, sampleStore)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestRPCSubmitterAcceptsArrayAndObject(t *testing.T) {
	var (
		calls int
		paths []string
		sent  map[string]json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		paths = append(paths, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &sent)
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			_, _ = w.Write([]byte(`[{"order_id":"9b1f","order_number":1042}]`))
			return
		}
		_, _ = w.Write([]byte(`{"order_id":"9b20","order_number":"A-7"}`))
	}))
	defer srv.Close()

	s := &RPCSubmitter{Client: &backend.Client{BaseURL: srv.URL, APIKey: "anon"}}
	ack, err := s.Submit(context.Background(), Submission{ClientReference: "ref-1"})
	require.NoError(t, err)
	require.Equal(t, Ack{OrderID: "9b1f", OrderNumber: "1042"}, ack)
	require.Contains(t, sent, "p_order")

	ack, err = s.Submit(context.Background(), Submission{ClientReference: "ref-2"})
	require.NoError(t, err)
	require.Equal(t, "A-7", ack.OrderNumber)
	require.Equal(t, []string{"/rest/v1/rpc/create_order", "/rest/v1/rpc/create_order"}, paths)
}

func TestRPCSubmitterSurfacesReason(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"P0001","message":"address is outside the delivery zone"}`))
	}))
	defer srv.Close()

	s := &RPCSubmitter{Client: &backend.Client{BaseURL: srv.URL}}
	_, err := s.Submit(context.Background(), Submission{})
	require.ErrorIs(t, err, ErrSubmission)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, "address is outside the delivery zone", subErr.Reason)
	require.Equal(t, http.StatusBadRequest, subErr.Status)
	require.Equal(t, 1, calls)
}

func TestRPCSubmitterRejectsEmptyAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := (&RPCSubmitter{Client: &backend.Client{BaseURL: srv.URL}}).Submit(context.Background(), Submission{})
	require.ErrorIs(t, err, ErrSubmission)
}
