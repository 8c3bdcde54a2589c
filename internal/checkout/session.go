package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// Step is a checkout wizard step.
type Step string

const (
	StepAddress Step = "address"
	StepPayment Step = "payment"
	StepReview  Step = "review"
)

// Session is the state of one checkout attempt. It is a value: every
// transition returns a new Session and leaves the receiver untouched.
//
// OrderID and ChargeID belong to the rail that was active when they were
// produced. Attempt is bumped whenever they are discarded so late driver
// results can be recognized and dropped. Owner identifies the buyer who
// opened the session; it is never shown to anyone else.
type Session struct {
	ID            string
	Owner         string
	Step          Step
	Rail          payment.Rail
	Attempt       int
	OrderID       string
	ChargeID      string
	Total         decimal.Decimal
	ScannableCode string
	Phone         string
	Notes         string
	Shipping      address.ShippingAddress
	Billing       address.ShippingAddress
	Cart          cart.Snapshot
	RailFailed    bool
	Paid          bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSession starts a checkout on the address step.
func NewSession(id string, snapshot cart.Snapshot, now time.Time) Session {
	return Session{
		ID:        id,
		Step:      StepAddress,
		Cart:      snapshot,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SelectRail activates r and discards any order or charge created under the
// previous selection, including a re-selection of the same rail.
func (s Session) SelectRail(r payment.Rail) Session {
	s.Rail = r
	return s.discardPayment()
}

// WithAddress replaces the shipping and billing addresses. An existing order
// was created for the old destination, so it is discarded as well.
func (s Session) WithAddress(shipping, billing address.ShippingAddress) Session {
	shipping = shipping.Normalize()
	billing = billing.Normalize()
	if shipping == s.Shipping && billing == s.Billing {
		return s
	}
	s.Shipping = shipping
	s.Billing = billing
	return s.discardPayment()
}

// WithNotes sets the free-text notes carried into order creation.
func (s Session) WithNotes(notes string) Session {
	s.Notes = notes
	return s
}

// Advance moves the wizard forward.
func (s Session) Advance() (Session, error) {
	switch s.Step {
	case StepAddress:
		if err := s.Shipping.Validate(); err != nil {
			return s, err
		}
		if !s.Billing.IsZero() {
			if err := s.Billing.Validate(); err != nil {
				return s, err
			}
		}
		s.Step = StepPayment
		return s, nil
	case StepPayment:
		if s.Rail == "" {
			return s, address.NewFieldError("payment_method", "required")
		}
		if s.Rail == payment.RailQR && s.OrderID != "" && !s.Paid {
			return s, ErrPendingCharge
		}
		if s.Rail.OutOfBand() {
			return s, ErrOutOfBandRail
		}
		s.Step = StepReview
		return s, nil
	default:
		return s, ErrLastStep
	}
}

// Retreat moves the wizard back one step. It never discards an order.
func (s Session) Retreat() Session {
	switch s.Step {
	case StepReview:
		s.Step = StepPayment
	case StepPayment:
		s.Step = StepAddress
	}
	return s
}

// PlaceRequest builds the order placement input from the session.
func (s Session) PlaceRequest() order.PlaceRequest {
	return order.PlaceRequest{
		Shipping: s.Shipping,
		Billing:  s.Billing,
		Cart:     s.Cart,
		Notes:    s.Notes,
	}
}

func (s Session) discardPayment() Session {
	s.Attempt++
	s.OrderID = ""
	s.ChargeID = ""
	s.Total = decimal.Zero
	s.ScannableCode = ""
	s.RailFailed = false
	s.Paid = false
	return s
}

func (s Session) withOrder(o *order.Order) Session {
	s.OrderID = o.ID
	s.Total = o.Totals.Total
	return s
}

func (s Session) withCharge(chargeID, scannableCode string) Session {
	s.ChargeID = chargeID
	s.ScannableCode = scannableCode
	return s
}

func (s Session) withPhone(phone string) Session {
	s.Phone = phone
	return s
}

func (s Session) touched(now time.Time) Session {
	s.UpdatedAt = now
	return s
}
