package checkout

import "github.com/go-faster/errors"

var (
	// ErrPendingCharge blocks advancing past payment while a QR order awaits
	// confirmation.
	ErrPendingCharge = errors.New("a pending payment must be confirmed first")
	// ErrOutOfBandRail blocks advancing to review for rails that complete
	// outside the wizard.
	ErrOutOfBandRail = errors.New("payment method completes outside checkout")
	ErrLastStep      = errors.New("already at the last step")
	// ErrSubmitInFlight is returned when submit is re-entered before the
	// previous call returned.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrNoRail         = errors.New("no payment method selected")
	ErrWrongStep      = errors.New("payment method cannot be submitted from this step")
	// ErrSuperseded is returned by a submit whose result arrived after the
	// rail or address changed. The result is discarded.
	ErrSuperseded      = errors.New("payment method changed during submission")
	ErrNoPendingCharge = errors.New("no pending payment to check")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSessionClosed   = errors.New("checkout session already completed")
)
