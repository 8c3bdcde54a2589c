package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeStatus is the provider-side state of a charge.
type ChargeStatus string

const (
	ChargePending    ChargeStatus = "pending"
	ChargeAuthorized ChargeStatus = "authorized"
	ChargePaid       ChargeStatus = "paid"
	ChargeFailed     ChargeStatus = "failed"
)

// ParseChargeStatus maps provider status strings onto ChargeStatus. The
// provider reports settled charges as "successful"; unknown values are
// treated as pending because the server remains the source of truth.
func ParseChargeStatus(s string) ChargeStatus {
	switch s {
	case "successful", "paid":
		return ChargePaid
	case "authorized":
		return ChargeAuthorized
	case "failed", "expired", "reversed":
		return ChargeFailed
	default:
		return ChargePending
	}
}

// Charge is the record returned by createCharge and getCharge.
// ScannableCode is the image reference of a QR payload, when present.
type Charge struct {
	ID             string
	Status         ChargeStatus
	Paid           bool
	AuthorizeURI   string
	ScannableCode  string
	FailureMessage string
}

// Succeeded reports whether the charge is settled.
func (c *Charge) Succeeded() bool {
	return c.Paid && (c.Status == ChargePaid || c.Status == ChargeAuthorized)
}

// ChargeRequest is the input of createCharge. Exactly one of Token,
// BankCode or PhoneNumber is set depending on the rail.
// Amount is expressed in minor currency units.
type ChargeRequest struct {
	Amount      int64
	Currency    string
	Method      string
	OrderID     string
	ReturnURI   string
	Token       string
	BankCode    string
	PhoneNumber string
}

// MinorUnits converts a decimal amount to the integer minor-unit amount
// expected by the provider.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// ChargeService creates and fetches charges on the commerce API.
type ChargeService interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
}

// CardFields is raw card input. It is only ever forwarded to a Tokenizer.
type CardFields struct {
	Name            string
	Number          string
	ExpirationMonth int
	ExpirationYear  int
	SecurityCode    string
}

// Tokenizer exchanges card fields for a single-use token.
type Tokenizer interface {
	CreateToken(ctx context.Context, card CardFields) (string, error)
}
