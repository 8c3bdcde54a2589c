package checkout

import (
	"context"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var _ Driver = (*CODDriver)(nil)

// CODDriver places a cash-on-delivery order. Every submit creates a fresh
// order; no charge is involved.
type CODDriver struct {
	orders OrderPlacer
	links  Links
}

func (d *CODDriver) Rail() payment.Rail { return payment.RailCOD }

func (d *CODDriver) Execute(ctx context.Context, s Session, _ Input) (Session, payment.Outcome) {
	o, err := d.orders.Place(ctx, s.PlaceRequest())
	if err != nil {
		return s, payment.Fail(err)
	}
	s = s.withOrder(o)
	return s, payment.Navigate(d.links.ConfirmationURL(o.ID))
}
