package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
)

// Order is an order created on the commerce API during checkout.
type Order struct {
	ID     string
	Totals cart.Totals
}

// CreateRequest is the input of createOrder.
type CreateRequest struct {
	Shipping    address.ShippingAddress
	Billing     address.ShippingAddress
	Items       []cart.Item
	ShippingFee decimal.Decimal
	TaxAmount   decimal.Decimal
	Notes       string
}

// Creator creates orders on the commerce API and returns the new order id.
type Creator interface {
	CreateOrder(ctx context.Context, req CreateRequest) (string, error)
}
