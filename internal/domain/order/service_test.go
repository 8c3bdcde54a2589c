package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
)

// --- Mock implementations ---

type mockCreator struct {
	id    string
	err   error
	calls int
	last  CreateRequest
}

func (m *mockCreator) CreateOrder(_ context.Context, req CreateRequest) (string, error) {
	m.calls++
	m.last = req
	return m.id, m.err
}

// --- Helpers ---

func testAddress() address.ShippingAddress {
	return address.ShippingAddress{
		RecipientName: "Somchai Jaidee",
		Phone:         "0812345678",
		Email:         "somchai@example.com",
		Line1:         "99 Rama IV Rd",
		City:          "Bangkok",
		Province:      "Bangkok",
		PostalCode:    "10110",
		Country:       "TH",
	}
}

func testCart() cart.Snapshot {
	return cart.Snapshot{
		Items: []cart.Item{
			{ProductID: "p1", ShopID: "s1", UnitPrice: decimal.RequireFromString("100.00"), Quantity: 2},
		},
		ShippingFee: decimal.RequireFromString("50"),
		Currency:    "THB",
	}
}

// --- Tests ---

func TestPlace_Success(t *testing.T) {
	creator := &mockCreator{id: "ord_1"}
	svc := NewService(creator, decimal.RequireFromString("0.07"))

	o, err := svc.Place(context.Background(), PlaceRequest{
		Shipping: testAddress(),
		Cart:     testCart(),
		Notes:    "leave at door",
	})

	require.NoError(t, err)
	assert.Equal(t, "ord_1", o.ID)
	assert.Equal(t, 1, creator.calls)
	assert.Equal(t, "leave at door", creator.last.Notes)
	assert.Equal(t, creator.last.Shipping, creator.last.Billing, "billing defaults to shipping")
	assert.True(t, decimal.RequireFromString("14").Equal(creator.last.TaxAmount))
	assert.True(t, decimal.RequireFromString("50").Equal(creator.last.ShippingFee))
	assert.True(t, decimal.RequireFromString("264").Equal(o.Totals.Total))
}

func TestPlace_InvalidAddress(t *testing.T) {
	creator := &mockCreator{id: "ord_1"}
	svc := NewService(creator, decimal.Zero)

	a := testAddress()
	a.Phone = "123"
	_, err := svc.Place(context.Background(), PlaceRequest{Shipping: a, Cart: testCart()})

	var vErr *address.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("phone"))
	assert.Zero(t, creator.calls, "no order may be created before validation passes")
}

func TestPlace_InvalidBilling(t *testing.T) {
	creator := &mockCreator{id: "ord_1"}
	svc := NewService(creator, decimal.Zero)

	billing := testAddress()
	billing.PostalCode = "abc"
	_, err := svc.Place(context.Background(), PlaceRequest{Shipping: testAddress(), Billing: billing, Cart: testCart()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing address")
	assert.Zero(t, creator.calls)
}

func TestPlace_EmptyCart(t *testing.T) {
	svc := NewService(&mockCreator{id: "ord_1"}, decimal.Zero)

	_, err := svc.Place(context.Background(), PlaceRequest{Shipping: testAddress()})
	require.ErrorIs(t, err, cart.ErrEmptyCart)
}

func TestPlace_CreateError(t *testing.T) {
	svc := NewService(&mockCreator{err: errors.New("upstream unavailable")}, decimal.Zero)

	_, err := svc.Place(context.Background(), PlaceRequest{Shipping: testAddress(), Cart: testCart()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestPlace_MissingID(t *testing.T) {
	svc := NewService(&mockCreator{}, decimal.Zero)

	_, err := svc.Place(context.Background(), PlaceRequest{Shipping: testAddress(), Cart: testCart()})
	require.ErrorIs(t, err, ErrMissingOrderID)
}
