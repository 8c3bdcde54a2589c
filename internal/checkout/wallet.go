package checkout

import (
	"context"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var (
	_ Driver    = (*WalletDriver)(nil)
	_ Confirmer = (*WalletDriver)(nil)
)

// WalletDriver charges a mobile wallet. The buyer approves the charge in
// the wallet app opened from the returned URI.
type WalletDriver struct {
	deps Deps
}

func (d *WalletDriver) Rail() payment.Rail { return payment.RailWallet }

func (d *WalletDriver) Execute(ctx context.Context, s Session, in Input) (Session, payment.Outcome) {
	phone := address.NormalizePhone(in.Phone)
	if phone == "" {
		phone = s.Phone
	}
	if err := address.ValidateMobile(phone); err != nil {
		return s, payment.Fail(err)
	}
	// Kept even when the charge fails so the buyer does not retype it.
	s = s.withPhone(phone)

	s, err := ensureOrder(ctx, d.deps.Orders, s)
	if err != nil {
		return s, payment.Fail(err)
	}

	req := chargeRequest(d.deps, s)
	req.PhoneNumber = phone
	ch, err := d.deps.Charges.CreateCharge(ctx, req)
	if err != nil {
		return s, payment.Fail(err)
	}

	s = s.withCharge(ch.ID, "")
	out := payment.Pending()
	out.URI = ch.AuthorizeURI
	return s, out
}

func (d *WalletDriver) Confirm(ctx context.Context, s Session) payment.Outcome {
	return confirmCharge(ctx, d.deps.Charges, d.deps.Links, s)
}
