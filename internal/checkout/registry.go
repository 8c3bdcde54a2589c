package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// DefaultIdleTTL is how long a session may go without activity before the
// registry forgets it.
const DefaultIdleTTL = 30 * time.Minute

// Registry holds the live checkout sessions of this process.
type Registry struct {
	engine  *Engine
	carts   cart.Loader
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Orchestrator
}

// NewRegistry creates a registry. idleTTL <= 0 selects DefaultIdleTTL.
func NewRegistry(engine *Engine, carts cart.Loader, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		engine:   engine,
		carts:    carts,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Orchestrator),
	}
}

// Open snapshots the buyer's cart and starts a new session on the address
// step. The session belongs to OwnerFrom(ctx).
func (r *Registry) Open(ctx context.Context) (*Orchestrator, error) {
	snapshot, err := r.carts.LoadCart(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	s := NewSession(r.engine.newID(), *snapshot, r.engine.now())
	s.Owner = OwnerFrom(ctx)
	o := r.engine.Open(s)
	r.put(o)

	zctx.From(ctx).Info("Checkout session opened",
		zap.String("session_id", s.ID),
		zap.Int("items", len(snapshot.Items)),
	)
	return o, nil
}

// Get returns the live session with id. Sessions of another buyer are
// reported as not found.
func (r *Registry) Get(ctx context.Context, id string) (*Orchestrator, error) {
	o, ok := r.lookup(id)
	if !ok || o.Session().Owner != OwnerFrom(ctx) {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

func (r *Registry) lookup(id string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.sessions[id]
	return o, ok
}

// Remove forgets the session with id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		r.engine.metrics.active.Add(context.Background(), -1)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) put(o *Orchestrator) {
	r.mu.Lock()
	_, replaced := r.sessions[o.ID()]
	r.sessions[o.ID()] = o
	r.mu.Unlock()
	if !replaced {
		r.engine.metrics.active.Add(context.Background(), 1)
	}
}

// Resume reconciles a session suspended by a redirect once the buyer is back
// on the return URL. Only the buyer who opened the session can resume it.
// A settled charge completes checkout and a declined one lets the buyer
// retry or pick another rail; both end the suspension. Any other failure
// leaves the suspension in place for the next return.
func (r *Registry) Resume(ctx context.Context, orderID string) (Session, payment.Outcome, error) {
	if r.engine.store == nil {
		return Session{}, payment.Outcome{}, ErrSessionNotFound
	}
	s, err := r.engine.store.Load(ctx, orderID)
	if err != nil {
		return Session{}, payment.Outcome{}, err
	}

	lg := zctx.From(ctx).With(
		zap.String("session_id", s.ID),
		zap.String("order_id", orderID),
		zap.Stringer("rail", s.Rail),
	)
	if s.Owner != OwnerFrom(ctx) {
		lg.Warn("Rejected return of another buyer's session")
		return Session{}, payment.Outcome{}, ErrSessionNotFound
	}

	start := r.engine.now()
	out := reconcile(ctx, r.engine.charges, r.engine.links, *s)
	r.engine.metrics.recordOutcome(ctx, "resume", s.Rail, out, r.engine.now().Sub(start))

	switch out.Kind {
	case payment.KindNavigate:
		s.Paid = true
		if err := r.engine.store.Delete(ctx, orderID); err != nil {
			lg.Warn("Failed to delete suspended session", zap.Error(err))
		}
		r.Remove(s.ID)
		lg.Info("Resumed checkout completed")
		r.publish(ctx, EventCompleted, *s)
		return *s, out, nil
	case payment.KindError:
		if class := payment.Classify(out.Err); class != payment.ClassDeclined {
			// The charge state is unknown; keep the suspension for another try.
			lg.Warn("Resume failed", zap.String("class", string(class)), zap.Error(out.Err))
			return *s, out, nil
		}
		if err := r.engine.store.Delete(ctx, orderID); err != nil {
			lg.Warn("Failed to delete suspended session", zap.Error(err))
		}
	}

	o, ok := r.lookup(s.ID)
	if !ok {
		o = r.engine.Open(*s)
		r.put(o)
	}
	lg.Info("Checkout resumed", zap.String("kind", string(out.Kind)))
	r.publish(ctx, EventResumed, *s)
	return o.Session(), out, nil
}

func (r *Registry) publish(ctx context.Context, t EventType, s Session) {
	if err := r.engine.events.Publish(ctx, r.engine.event(t, s)); err != nil {
		zctx.From(ctx).Warn("Failed to publish checkout event",
			zap.String("type", string(t)),
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
}

// Sweep ticks every countdown once and evicts completed or idle sessions.
func (r *Registry) Sweep(now time.Time) (evicted int) {
	r.mu.RLock()
	live := make([]*Orchestrator, 0, len(r.sessions))
	for _, o := range r.sessions {
		live = append(live, o)
	}
	r.mu.RUnlock()

	for _, o := range live {
		o.Tick()
		if o.Closed() || o.Idle(now, r.idleTTL) {
			r.Remove(o.ID())
			evicted++
		}
	}
	return evicted
}

// Run sweeps once per second until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lg := zctx.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(r.engine.now()); n > 0 {
				lg.Debug("Evicted checkout sessions", zap.Int("count", n))
			}
		}
	}
}
