package checkout

import (
	"context"
	"time"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// EventType names a checkout lifecycle event.
type EventType string

const (
	EventCompleted  EventType = "checkout.completed"
	EventRedirected EventType = "checkout.redirected"
	EventTimedOut   EventType = "checkout.timed_out"
	EventResumed    EventType = "checkout.resumed"
)

// Event is published whenever a session settles, suspends or times out.
type Event struct {
	ID         string
	Type       EventType
	SessionID  string
	OrderID    string
	ChargeID   string
	Rail       payment.Rail
	AmountMin  int64
	Currency   string
	OccurredAt time.Time
}

// Publisher delivers checkout events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// SuspendStore keeps sessions that left checkout for an external surface,
// keyed by order id, until the buyer returns.
type SuspendStore interface {
	Save(ctx context.Context, s Session) error
	// Load returns ErrSessionNotFound when no session is stored.
	Load(ctx context.Context, orderID string) (*Session, error)
	Delete(ctx context.Context, orderID string) error
}
