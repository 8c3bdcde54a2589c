package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// Orchestrator owns one live checkout session. It routes submits to the
// active rail driver, runs the confirmation countdown of polled rails and
// applies driver results only while they still belong to the current
// attempt.
type Orchestrator struct {
	engine   *Engine
	inFlight atomic.Bool

	mu         sync.Mutex
	session    Session
	poller     *Poller
	closed     bool
	lastActive time.Time
}

// Session returns a snapshot of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// ID is the session id.
func (o *Orchestrator) ID() string {
	return o.Session().ID
}

// Countdown reports the confirmation countdown of the pending charge, if any.
func (o *Orchestrator) Countdown() (Countdown, bool) {
	o.mu.Lock()
	p := o.poller
	o.mu.Unlock()
	if p == nil {
		return Countdown{}, false
	}
	return p.Countdown(), true
}

// Closed reports whether the session reached a navigate outcome.
func (o *Orchestrator) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Busy reports whether a submit is executing.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load()
}

// SelectRail activates r. Any order or charge from the previous selection is
// discarded and a pending countdown is stopped. No network call is made.
func (o *Orchestrator) SelectRail(ctx context.Context, r payment.Rail) error {
	if _, ok := o.engine.drivers[r]; !ok {
		return errors.Wrapf(payment.ErrUnknownRail, "%q", r)
	}
	if err := o.update(func(s Session) (Session, error) {
		return s.SelectRail(r), nil
	}); err != nil {
		return err
	}
	zctx.From(ctx).Debug("Payment rail selected",
		zap.String("session_id", o.ID()),
		zap.Stringer("rail", r),
	)
	return nil
}

// SetAddress replaces the shipping and billing addresses. Billing may be
// zero to reuse shipping.
func (o *Orchestrator) SetAddress(shipping, billing address.ShippingAddress) error {
	return o.update(func(s Session) (Session, error) {
		return s.WithAddress(shipping, billing), nil
	})
}

// SetNotes sets the order notes.
func (o *Orchestrator) SetNotes(notes string) error {
	return o.update(func(s Session) (Session, error) {
		return s.WithNotes(notes), nil
	})
}

// Advance moves the wizard forward one step.
func (o *Orchestrator) Advance() error {
	return o.update(Session.Advance)
}

// Retreat moves the wizard back one step.
func (o *Orchestrator) Retreat() error {
	return o.update(func(s Session) (Session, error) {
		return s.Retreat(), nil
	})
}

func (o *Orchestrator) update(fn func(Session) (Session, error)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrSessionClosed
	}
	next, err := fn(o.session)
	if err != nil {
		return err
	}
	if next.Attempt != o.session.Attempt {
		o.dropPoller()
	}
	now := o.engine.now()
	o.session = next.touched(now)
	o.lastActive = now
	return nil
}

// dropPoller must be called with o.mu held.
func (o *Orchestrator) dropPoller() {
	if o.poller != nil {
		o.poller.Stop()
		o.poller = nil
	}
}

// Submit executes the active rail. Re-entry while a submit is running is
// rejected without reaching the driver, so a double-submit can never create
// two orders. Results that arrive after the rail changed are discarded.
func (o *Orchestrator) Submit(ctx context.Context, in Input) payment.Outcome {
	if !o.inFlight.CompareAndSwap(false, true) {
		return payment.Fail(ErrSubmitInFlight)
	}
	defer o.inFlight.Store(false)

	o.mu.Lock()
	s, closed := o.session, o.closed
	o.lastActive = o.engine.now()
	o.mu.Unlock()

	lg := zctx.From(ctx).With(
		zap.String("session_id", s.ID),
		zap.Stringer("rail", s.Rail),
		zap.Int("attempt", s.Attempt),
	)
	if closed {
		return payment.Fail(ErrSessionClosed)
	}
	driver, err := o.engine.driverFor(s)
	if err != nil {
		lg.Debug("Submit rejected", zap.Error(err))
		return payment.Fail(err)
	}

	ctx, span := o.engine.tracer.Start(ctx, "checkout.Submit",
		trace.WithAttributes(
			attribute.String("checkout.session_id", s.ID),
			attribute.String("checkout.rail", s.Rail.String()),
		),
	)
	defer span.End()

	start := o.engine.now()
	next, out := driver.Execute(ctx, s, in)
	o.engine.metrics.recordOutcome(ctx, "submit", s.Rail, out, o.engine.now().Sub(start))
	if out.IsError() {
		span.SetStatus(codes.Error, out.Message)
	}

	o.mu.Lock()
	if o.closed || o.session.Attempt != s.Attempt {
		o.mu.Unlock()
		lg.Info("Discarding stale submit result",
			zap.String("kind", string(out.Kind)),
			zap.String("order_id", next.OrderID),
		)
		return payment.Fail(ErrSuperseded)
	}
	// Concurrent address or notes edits share the attempt; keep them.
	cur := o.session
	next.Step, next.Notes = cur.Step, cur.Notes
	now := o.engine.now()
	o.session = next.touched(now)
	o.lastActive = now
	switch out.Kind {
	case payment.KindNavigate:
		o.closed = true
		o.dropPoller()
	case payment.KindPending:
		if next.ChargeID != s.ChargeID || o.poller == nil {
			o.dropPoller()
			o.poller = NewPoller(o.engine.cfg.CountdownSeconds, o.engine.cfg.GraceChecks,
				o.timeoutHandler(next.Attempt, next.ChargeID))
		}
	}
	o.mu.Unlock()

	switch out.Kind {
	case payment.KindNavigate:
		lg.Info("Checkout completed", zap.String("order_id", next.OrderID))
		o.publish(ctx, EventCompleted, next)
	case payment.KindRedirect:
		lg.Info("Checkout suspended for external authorization",
			zap.String("order_id", next.OrderID),
			zap.String("charge_id", next.ChargeID),
		)
		o.suspend(ctx, next)
		o.publish(ctx, EventRedirected, next)
	case payment.KindPending:
		lg.Info("Awaiting payment confirmation",
			zap.String("order_id", next.OrderID),
			zap.String("charge_id", next.ChargeID),
		)
	case payment.KindError:
		lg.Warn("Submit failed",
			zap.String("class", string(payment.Classify(out.Err))),
			zap.Error(out.Err),
		)
	}
	return out
}

// Check performs one status fetch for the pending charge. A charge that
// settles after the rail changed is reported but does not close the session.
func (o *Orchestrator) Check(ctx context.Context) payment.Outcome {
	o.mu.Lock()
	s, p := o.session, o.poller
	o.lastActive = o.engine.now()
	o.mu.Unlock()

	if p == nil {
		return payment.Fail(ErrNoPendingCharge)
	}
	confirmer, ok := o.engine.drivers[s.Rail].(Confirmer)
	if !ok {
		return payment.Fail(ErrNoPendingCharge)
	}

	ctx, span := o.engine.tracer.Start(ctx, "checkout.Check",
		trace.WithAttributes(
			attribute.String("checkout.session_id", s.ID),
			attribute.String("checkout.charge_id", s.ChargeID),
		),
	)
	defer span.End()

	start := o.engine.now()
	out := p.CheckNow(ctx, func(ctx context.Context) payment.Outcome {
		return confirmer.Confirm(ctx, s)
	})
	o.engine.metrics.recordOutcome(ctx, "check", s.Rail, out, o.engine.now().Sub(start))

	if out.Kind != payment.KindNavigate {
		return out
	}

	o.mu.Lock()
	if o.session.Attempt != s.Attempt {
		o.mu.Unlock()
		zctx.From(ctx).Info("Charge of a superseded attempt settled",
			zap.String("session_id", s.ID),
			zap.String("order_id", s.OrderID),
			zap.String("charge_id", s.ChargeID),
		)
		return out
	}
	if o.session.ChargeID == s.ChargeID {
		o.session.Paid = true
	}
	alreadyClosed := o.closed
	o.closed = true
	o.dropPoller()
	o.mu.Unlock()

	if !alreadyClosed {
		zctx.From(ctx).Info("Checkout completed",
			zap.String("session_id", s.ID),
			zap.String("order_id", s.OrderID),
		)
		o.publish(ctx, EventCompleted, s)
	}
	return out
}

// Tick advances the confirmation countdown by one second.
func (o *Orchestrator) Tick() {
	o.mu.Lock()
	p := o.poller
	o.mu.Unlock()
	if p != nil {
		p.Tick()
	}
}

// Idle reports whether the session saw no activity for ttl.
func (o *Orchestrator) Idle(now time.Time, ttl time.Duration) bool {
	if o.Busy() {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return now.Sub(o.lastActive) >= ttl
}

func (o *Orchestrator) timeoutHandler(attempt int, chargeID string) func() {
	return func() {
		o.mu.Lock()
		s := o.session
		stale := s.Attempt != attempt || s.ChargeID != chargeID || o.closed
		if !stale {
			o.session.RailFailed = true
			s = o.session
		}
		o.mu.Unlock()
		if stale {
			return
		}

		ctx := context.Background()
		o.engine.lg.Info("Payment confirmation timed out",
			zap.String("session_id", s.ID),
			zap.Stringer("rail", s.Rail),
			zap.String("order_id", s.OrderID),
			zap.String("charge_id", s.ChargeID),
		)
		o.engine.metrics.recordTimeout(ctx, s.Rail)
		o.publish(ctx, EventTimedOut, s)
	}
}

func (o *Orchestrator) suspend(ctx context.Context, s Session) {
	if o.engine.store == nil {
		return
	}
	if err := o.engine.store.Save(ctx, s); err != nil {
		zctx.From(ctx).Error("Failed to suspend session",
			zap.String("session_id", s.ID),
			zap.String("order_id", s.OrderID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, t EventType, s Session) {
	if err := o.engine.events.Publish(ctx, o.engine.event(t, s)); err != nil {
		zctx.From(ctx).Warn("Failed to publish checkout event",
			zap.String("type", string(t)),
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
}
