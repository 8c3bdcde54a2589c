package checkout

import (
	"context"
	"net/url"
	"strings"

	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// Input carries the rail-specific submit payload. Card details are only
// forwarded to the tokenizer and never stored in the session.
type Input struct {
	Token    string
	Card     *payment.CardFields
	BankCode string
	Phone    string
}

// Driver executes one payment rail. Execute receives the session by value
// and returns the successor state together with the outcome; it keeps no
// reference to either afterwards.
type Driver interface {
	Rail() payment.Rail
	Execute(ctx context.Context, s Session, in Input) (Session, payment.Outcome)
}

// Confirmer is implemented by rails whose charge is confirmed by polling.
type Confirmer interface {
	Confirm(ctx context.Context, s Session) payment.Outcome
}

// OrderPlacer creates orders from checkout state.
type OrderPlacer interface {
	Place(ctx context.Context, req order.PlaceRequest) (*order.Order, error)
}

var _ OrderPlacer = (*order.Service)(nil)

// Links renders buyer-facing URLs. Both templates substitute {order_id}.
type Links struct {
	Confirmation string
	Return       string
}

// ConfirmationURL is the navigate target for a completed order.
func (l Links) ConfirmationURL(orderID string) string {
	return expand(l.Confirmation, orderID)
}

// ReturnURL is where the provider sends the buyer after an external step.
func (l Links) ReturnURL(orderID string) string {
	return expand(l.Return, orderID)
}

func expand(tmpl, orderID string) string {
	return strings.ReplaceAll(tmpl, "{order_id}", url.PathEscape(orderID))
}

// Deps are the collaborators shared by the rail drivers.
type Deps struct {
	Orders    OrderPlacer
	Charges   payment.ChargeService
	Tokenizer payment.Tokenizer
	Links     Links
	Currency  string
}

// NewDrivers returns a driver for every supported rail.
func NewDrivers(d Deps) []Driver {
	return []Driver{
		&CODDriver{orders: d.Orders, links: d.Links},
		&CardDriver{deps: d},
		&QRDriver{deps: d},
		&WalletDriver{deps: d},
		&BankDriver{deps: d},
	}
}

// ensureOrder creates an order unless the session already holds one.
func ensureOrder(ctx context.Context, orders OrderPlacer, s Session) (Session, error) {
	if s.OrderID != "" {
		return s, nil
	}
	o, err := orders.Place(ctx, s.PlaceRequest())
	if err != nil {
		return s, err
	}
	return s.withOrder(o), nil
}

func chargeRequest(d Deps, s Session) payment.ChargeRequest {
	return payment.ChargeRequest{
		Amount:    payment.MinorUnits(s.Total),
		Currency:  d.Currency,
		Method:    s.Rail.Method(),
		OrderID:   s.OrderID,
		ReturnURI: d.Links.ReturnURL(s.OrderID),
	}
}

// confirmCharge reads the charge back. The server is the source of truth:
// anything but a settled charge leaves the outcome pending.
func confirmCharge(ctx context.Context, charges payment.ChargeService, links Links, s Session) payment.Outcome {
	if s.ChargeID == "" {
		return payment.Fail(ErrNoPendingCharge)
	}
	ch, err := charges.GetCharge(ctx, s.ChargeID)
	if err != nil {
		return payment.Fail(err)
	}
	if ch.Succeeded() {
		return payment.Navigate(links.ConfirmationURL(s.OrderID))
	}
	out := payment.Pending()
	out.ScannableCode = s.ScannableCode
	return out
}

// reconcile resolves a charge after the buyer returns from an external
// surface. Unlike confirmCharge a failed charge is final.
func reconcile(ctx context.Context, charges payment.ChargeService, links Links, s Session) payment.Outcome {
	if s.ChargeID == "" {
		return payment.Fail(ErrNoPendingCharge)
	}
	ch, err := charges.GetCharge(ctx, s.ChargeID)
	if err != nil {
		return payment.Fail(err)
	}
	switch {
	case ch.Succeeded():
		return payment.Navigate(links.ConfirmationURL(s.OrderID))
	case ch.Status == payment.ChargeFailed:
		return payment.Fail(payment.ErrPaymentDeclined)
	default:
		return payment.Pending()
	}
}
