package checkout

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

const instrumentationName = "github.com/xenking/kart-checkout/internal/checkout"

// EngineConfig tunes the confirmation window of polled rails.
type EngineConfig struct {
	CountdownSeconds int
	GraceChecks      int
}

// EngineOptions are the collaborators of an Engine. Only Drivers and Charges
// are required.
type EngineOptions struct {
	Drivers        []Driver
	Charges        payment.ChargeService
	Links          Links
	Currency       string
	Store          SuspendStore
	Events         Publisher
	Config         EngineConfig
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Logger         *zap.Logger
	Now            func() time.Time
}

// Engine holds everything orchestrators share: the rail table, the suspend
// store, the event sink and telemetry.
type Engine struct {
	drivers  map[payment.Rail]Driver
	charges  payment.ChargeService
	links    Links
	currency string
	store    SuspendStore
	events   Publisher
	cfg      EngineConfig
	tracer   trace.Tracer
	metrics  *metrics
	lg       *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewEngine validates opts and fills in defaults.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if len(opts.Drivers) == 0 {
		return nil, errors.New("no payment drivers")
	}
	if opts.Charges == nil {
		return nil, errors.New("charge service is required")
	}
	if opts.Config.CountdownSeconds <= 0 {
		opts.Config.CountdownSeconds = DefaultCountdownSeconds
	}
	if opts.Config.GraceChecks < 0 {
		opts.Config.GraceChecks = 0
	}
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	drivers := make(map[payment.Rail]Driver, len(opts.Drivers))
	for _, d := range opts.Drivers {
		if _, dup := drivers[d.Rail()]; dup {
			return nil, errors.Errorf("duplicate driver for rail %q", d.Rail())
		}
		drivers[d.Rail()] = d
	}

	m, err := newMetrics(opts.MeterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}

	return &Engine{
		drivers:  drivers,
		charges:  opts.Charges,
		links:    opts.Links,
		currency: opts.Currency,
		store:    opts.Store,
		events:   opts.Events,
		cfg:      opts.Config,
		tracer:   opts.TracerProvider.Tracer(instrumentationName),
		metrics:  m,
		lg:       opts.Logger,
		now:      opts.Now,
		newID:    func() string { return uuid.NewString() },
	}, nil
}

// Open returns an orchestrator for s.
func (e *Engine) Open(s Session) *Orchestrator {
	return &Orchestrator{
		engine:     e,
		session:    s,
		lastActive: e.now(),
	}
}

// driverFor resolves the driver that may submit s in its current state.
func (e *Engine) driverFor(s Session) (Driver, error) {
	if s.Rail == "" {
		return nil, ErrNoRail
	}
	d, ok := e.drivers[s.Rail]
	if !ok {
		return nil, errors.Wrapf(payment.ErrUnknownRail, "%q", s.Rail)
	}
	if s.RailFailed {
		return nil, payment.ErrTimeout
	}
	want := StepPayment
	if s.Rail.SubmitsFromReview() {
		want = StepReview
	}
	if s.Step != want {
		return nil, ErrWrongStep
	}
	return d, nil
}

func (e *Engine) event(t EventType, s Session) Event {
	return Event{
		ID:         e.newID(),
		Type:       t,
		SessionID:  s.ID,
		OrderID:    s.OrderID,
		ChargeID:   s.ChargeID,
		Rail:       s.Rail,
		AmountMin:  payment.MinorUnits(s.Total),
		Currency:   e.currency,
		OccurredAt: e.now(),
	}
}
