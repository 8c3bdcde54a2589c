package payment

import "github.com/go-faster/errors"

// Rail enumerates the mutually exclusive payment methods.
type Rail string

const (
	// RailCOD collects cash on delivery; no charge is ever created.
	RailCOD Rail = "cod"
	// RailCard captures a tokenized card synchronously.
	RailCard Rail = "card"
	// RailQR presents a scannable push-payment code.
	RailQR Rail = "qr"
	// RailWallet charges a mobile wallet identified by phone number.
	RailWallet Rail = "wallet"
	// RailBankRedirect sends the buyer to their bank's login page.
	RailBankRedirect Rail = "bank_redirect"
)

// ErrUnknownRail is returned by ParseRail for unsupported values.
var ErrUnknownRail = errors.New("unknown payment rail")

// Rails lists every supported rail.
var Rails = []Rail{RailCOD, RailCard, RailQR, RailWallet, RailBankRedirect}

// ParseRail converts s to a Rail.
func ParseRail(s string) (Rail, error) {
	for _, r := range Rails {
		if string(r) == s {
			return r, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownRail, "%q", s)
}

// Method is the payment method name sent to createCharge.
func (r Rail) Method() string {
	switch r {
	case RailCard:
		return "card"
	case RailQR:
		return "promptpay"
	case RailWallet:
		return "truemoney"
	case RailBankRedirect:
		return "internet_banking"
	default:
		return string(r)
	}
}

// Polled reports whether confirmation happens through the countdown and a
// manual status check.
func (r Rail) Polled() bool {
	return r == RailQR || r == RailWallet
}

// OutOfBand reports whether the rail resolves outside the checkout wizard,
// so the forward button never reaches review.
func (r Rail) OutOfBand() bool {
	return r == RailWallet || r == RailBankRedirect
}

// SubmitsFromReview reports whether the rail is submitted from the review
// step (place order) rather than from the payment step.
func (r Rail) SubmitsFromReview() bool {
	return r == RailCOD || r == RailCard
}

func (r Rail) String() string { return string(r) }
