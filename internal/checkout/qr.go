package checkout

import (
	"context"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var (
	_ Driver    = (*QRDriver)(nil)
	_ Confirmer = (*QRDriver)(nil)
)

// QRDriver creates a push-payment charge and hands back its scannable code.
type QRDriver struct {
	deps Deps
}

func (d *QRDriver) Rail() payment.Rail { return payment.RailQR }

func (d *QRDriver) Execute(ctx context.Context, s Session, _ Input) (Session, payment.Outcome) {
	s, err := ensureOrder(ctx, d.deps.Orders, s)
	if err != nil {
		return s, payment.Fail(err)
	}

	ch, err := d.deps.Charges.CreateCharge(ctx, chargeRequest(d.deps, s))
	if err != nil {
		return s, payment.Fail(err)
	}
	if ch.ScannableCode == "" {
		return s, payment.Fail(&payment.IntegrationError{Missing: "scannable_code", Message: "payment code unavailable"})
	}

	s = s.withCharge(ch.ID, ch.ScannableCode)
	out := payment.Pending()
	out.ScannableCode = ch.ScannableCode
	return s, out
}

func (d *QRDriver) Confirm(ctx context.Context, s Session) payment.Outcome {
	return confirmCharge(ctx, d.deps.Charges, d.deps.Links, s)
}
