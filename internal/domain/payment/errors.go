package payment

import (
	"github.com/go-faster/errors"

	"github.com/xenking/kart-checkout/internal/domain/address"
)

var (
	// ErrPaymentDeclined is returned when a charge is not paid and carries
	// no redirect. The rail stays selected and the buyer may retry.
	ErrPaymentDeclined = errors.New("payment not successful")
	// ErrTimeout is returned once the confirmation countdown expires. A fresh
	// attempt requires re-selecting the rail.
	ErrTimeout = errors.New("timeout")
)

// NetworkError wraps any failed call to the commerce API. Session state is
// left unchanged so the buyer may retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IntegrationError reports a response missing a field the rail depends on,
// such as authorize_uri or the scannable code.
type IntegrationError struct {
	Missing string
	Message string
}

func (e *IntegrationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "missing " + e.Missing + " in provider response"
}

// Class is the error taxonomy bucket of a failure.
type Class string

const (
	ClassNone        Class = ""
	ClassValidation  Class = "validation"
	ClassNetwork     Class = "network"
	ClassDeclined    Class = "declined"
	ClassTimeout     Class = "timeout"
	ClassIntegration Class = "integration"
	ClassOther       Class = "other"
)

// Classify maps err onto the error taxonomy.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	var vErr *address.ValidationError
	var nErr *NetworkError
	var iErr *IntegrationError
	switch {
	case errors.As(err, &vErr):
		return ClassValidation
	case errors.Is(err, ErrTimeout):
		return ClassTimeout
	case errors.Is(err, ErrPaymentDeclined):
		return ClassDeclined
	case errors.As(err, &iErr):
		return ClassIntegration
	case errors.As(err, &nErr):
		return ClassNetwork
	default:
		return ClassOther
	}
}

// Message returns the buyer-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var nErr *NetworkError
	if errors.As(err, &nErr) {
		return "network error, please try again"
	}
	var iErr *IntegrationError
	if errors.As(err, &iErr) {
		return iErr.Error()
	}
	return err.Error()
}
