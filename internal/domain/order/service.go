package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
)

// ErrMissingOrderID is returned when createOrder succeeds without an id.
var ErrMissingOrderID = errors.New("create order returned no id")

// PlaceRequest holds the checkout state needed to create an order. Billing
// defaults to Shipping when zero.
type PlaceRequest struct {
	Shipping address.ShippingAddress
	Billing  address.ShippingAddress
	Cart     cart.Snapshot
	Notes    string
}

// Service turns a validated checkout state into a created order.
type Service struct {
	orders  Creator
	taxRate decimal.Decimal
}

// NewService creates an order Service. taxRate is applied to the cart
// subtotal, e.g. 0.07 for 7%.
func NewService(orders Creator, taxRate decimal.Decimal) *Service {
	return &Service{
		orders:  orders,
		taxRate: taxRate,
	}
}

// Totals returns the derived amounts of a cart under the service tax rate.
func (s *Service) Totals(c cart.Snapshot) cart.Totals {
	return c.Totals(s.taxRate)
}

// Place validates the address and cart, derives fees and calls createOrder
// exactly once.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	shipping := req.Shipping.Normalize()
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	billing := req.Billing.Normalize()
	if billing.IsZero() {
		billing = shipping
	} else if err := billing.Validate(); err != nil {
		return nil, errors.Wrap(err, "billing address")
	}

	if err := req.Cart.Validate(); err != nil {
		return nil, err
	}

	totals := s.Totals(req.Cart)
	id, err := s.orders.CreateOrder(ctx, CreateRequest{
		Shipping:    shipping,
		Billing:     billing,
		Items:       req.Cart.Items,
		ShippingFee: totals.Shipping,
		TaxAmount:   totals.Tax,
		Notes:       req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if id == "" {
		return nil, ErrMissingOrderID
	}

	return &Order{ID: id, Totals: totals}, nil
}
