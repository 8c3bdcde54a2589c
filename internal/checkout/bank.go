package checkout

import (
	"context"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var _ Driver = (*BankDriver)(nil)

// BankDriver sends the buyer to their bank to authorize the charge.
type BankDriver struct {
	deps Deps
}

func (d *BankDriver) Rail() payment.Rail { return payment.RailBankRedirect }

func (d *BankDriver) Execute(ctx context.Context, s Session, in Input) (Session, payment.Outcome) {
	if in.BankCode == "" {
		return s, payment.Fail(address.NewFieldError("bank_code", "required"))
	}

	s, err := ensureOrder(ctx, d.deps.Orders, s)
	if err != nil {
		return s, payment.Fail(err)
	}

	req := chargeRequest(d.deps, s)
	req.BankCode = in.BankCode
	ch, err := d.deps.Charges.CreateCharge(ctx, req)
	if err != nil {
		return s, payment.Fail(err)
	}
	if ch.AuthorizeURI == "" {
		return s, payment.Fail(&payment.IntegrationError{Missing: "authorize_uri", Message: "bank connection failed"})
	}

	s = s.withCharge(ch.ID, "")
	return s, payment.Redirect(ch.AuthorizeURI)
}
