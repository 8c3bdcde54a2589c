package checkout

import (
	"context"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var _ Driver = (*CardDriver)(nil)

// CardDriver charges a tokenized card. Raw card fields are exchanged for a
// token before any order is created.
type CardDriver struct {
	deps Deps
}

func (d *CardDriver) Rail() payment.Rail { return payment.RailCard }

func (d *CardDriver) Execute(ctx context.Context, s Session, in Input) (Session, payment.Outcome) {
	token := in.Token
	if token == "" {
		if in.Card == nil {
			return s, payment.Fail(address.NewFieldError("card_token", "required"))
		}
		if d.deps.Tokenizer == nil {
			return s, payment.Fail(&payment.IntegrationError{Missing: "tokenizer", Message: "card payments unavailable"})
		}
		var err error
		if token, err = d.deps.Tokenizer.CreateToken(ctx, *in.Card); err != nil {
			return s, payment.Fail(err)
		}
	}

	s, err := ensureOrder(ctx, d.deps.Orders, s)
	if err != nil {
		return s, payment.Fail(err)
	}

	req := chargeRequest(d.deps, s)
	req.Token = token
	ch, err := d.deps.Charges.CreateCharge(ctx, req)
	if err != nil {
		return s, payment.Fail(err)
	}
	s = s.withCharge(ch.ID, "")

	switch {
	case ch.Paid:
		s.Paid = true
		return s, payment.Navigate(d.deps.Links.ConfirmationURL(s.OrderID))
	case ch.AuthorizeURI != "":
		return s, payment.Redirect(ch.AuthorizeURI)
	default:
		return s, payment.Fail(payment.ErrPaymentDeclined)
	}
}
