package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

type metrics struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
	timeouts metric.Int64Counter
	active   metric.Int64UpDownCounter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	outcomes, err := meter.Int64Counter("checkout.submit.outcomes",
		metric.WithDescription("Checkout submit and check outcomes by rail and kind"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "outcomes counter")
	}
	duration, err := meter.Float64Histogram("checkout.submit.duration",
		metric.WithDescription("Driver execution time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}
	timeouts, err := meter.Int64Counter("checkout.confirmation.timeouts",
		metric.WithDescription("Confirmation countdowns that expired"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "timeouts counter")
	}
	active, err := meter.Int64UpDownCounter("checkout.sessions.active",
		metric.WithDescription("Live checkout sessions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "active sessions counter")
	}
	return &metrics{
		outcomes: outcomes,
		duration: duration,
		timeouts: timeouts,
		active:   active,
	}, nil
}

func (m *metrics) recordOutcome(ctx context.Context, op string, rail payment.Rail, out payment.Outcome, took time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("rail", rail.String()),
		attribute.String("kind", string(out.Kind)),
		attribute.String("error_class", string(payment.Classify(out.Err))),
	)
	m.outcomes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), attrs)
}

func (m *metrics) recordTimeout(ctx context.Context, rail payment.Rail) {
	m.timeouts.Add(ctx, 1, metric.WithAttributes(attribute.String("rail", rail.String())))
}
