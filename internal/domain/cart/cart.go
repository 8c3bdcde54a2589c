package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when checkout is attempted on a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// Item is a single line of the buyer's cart at checkout time.
type Item struct {
	ProductID string
	VariantID string
	ShopID    string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unit price multiplied by quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Snapshot is the immutable input to checkout. Subtotal, tax and total are
// always derived from Items, never stored.
type Snapshot struct {
	Items       []Item
	ShippingFee decimal.Decimal
	Currency    string
	CapturedAt  time.Time
}

// Totals holds the derived monetary amounts of a Snapshot.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal sums all line totals.
func (s Snapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Totals computes subtotal, shipping, tax and grand total. Tax is charged on
// the subtotal only and rounded to 2 decimal places.
func (s Snapshot) Totals(taxRate decimal.Decimal) Totals {
	subtotal := s.Subtotal()
	tax := subtotal.Mul(taxRate).Round(2)
	shipping := s.ShippingFee
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}
	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax).Round(2),
	}
}

// Validate checks that the snapshot can be checked out.
func (s Snapshot) Validate() error {
	if len(s.Items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range s.Items {
		if item.Quantity <= 0 {
			return errors.Errorf("quantity must be greater than 0 for product %s", item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return errors.Errorf("negative price for product %s", item.ProductID)
		}
	}
	return nil
}

// Loader fetches the buyer's current cart from the commerce API.
type Loader interface {
	LoadCart(ctx context.Context) (*Snapshot, error)
}
