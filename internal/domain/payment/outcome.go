package payment

// OutcomeKind tags the variant carried by an Outcome.
type OutcomeKind string

const (
	// KindNavigate ends checkout at the order-confirmation view.
	KindNavigate OutcomeKind = "navigate"
	// KindError is a recoverable failure; the session stays on its step.
	KindError OutcomeKind = "error"
	// KindRedirect hands control to an external surface; the session is
	// suspended, not destroyed.
	KindRedirect OutcomeKind = "redirect"
	// KindPending waits for buyer-triggered confirmation.
	KindPending OutcomeKind = "pending"
)

// Outcome is the result of a driver execution or a status check.
//
// Only the fields of the active Kind are set: Target for navigate, Message
// for error, URI for redirect. A pending outcome may carry a ScannableCode
// (QR) and a URI the client opens in a new context without leaving checkout
// (wallet confirmation).
type Outcome struct {
	Kind          OutcomeKind
	Target        string
	Message       string
	URI           string
	ScannableCode string

	// Err keeps the classified cause of an error outcome. It is never sent
	// to clients.
	Err error
}

// Navigate returns a navigate outcome.
func Navigate(target string) Outcome {
	return Outcome{Kind: KindNavigate, Target: target}
}

// Redirect returns a redirect outcome.
func Redirect(uri string) Outcome {
	return Outcome{Kind: KindRedirect, URI: uri}
}

// Pending returns a pending outcome.
func Pending() Outcome {
	return Outcome{Kind: KindPending}
}

// Fail normalizes err into an error outcome.
func Fail(err error) Outcome {
	return Outcome{Kind: KindError, Message: Message(err), Err: err}
}

// IsError reports whether o is an error outcome.
func (o Outcome) IsError() bool { return o.Kind == KindError }

// Settled reports whether the outcome ends or suspends the session.
func (o Outcome) Settled() bool {
	return o.Kind == KindNavigate || o.Kind == KindRedirect
}
