package events

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/checkout"
)

var _ checkout.Publisher = LogPublisher{}

// LogPublisher logs events instead of shipping them. It is used when no
// brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e checkout.Event) error {
	zctx.From(ctx).Info("Checkout event",
		zap.String("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("session_id", e.SessionID),
		zap.String("order_id", e.OrderID),
		zap.Stringer("rail", e.Rail),
	)
	return nil
}
