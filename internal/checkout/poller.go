package checkout

import (
	"context"
	"sync"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// DefaultCountdownSeconds is the confirmation window of polled rails.
const DefaultCountdownSeconds = 600

// Countdown is the pure state of a confirmation window.
type Countdown struct {
	Remaining int
	Expired   bool
	Stopped   bool
}

// NewCountdown starts a window of the given length in seconds.
func NewCountdown(seconds int) Countdown {
	return Countdown{Remaining: seconds}
}

// Tick advances the countdown by one second. expired is true only on the
// tick that reaches zero.
func (c Countdown) Tick() (next Countdown, expired bool) {
	if c.Stopped || c.Expired {
		return c, false
	}
	if c.Remaining > 0 {
		c.Remaining--
	}
	if c.Remaining == 0 {
		c.Expired = true
		return c, true
	}
	return c, false
}

// Stop freezes the countdown without expiring it.
func (c Countdown) Stop() Countdown {
	c.Stopped = true
	return c
}

// Active reports whether the countdown is still running.
func (c Countdown) Active() bool {
	return !c.Stopped && !c.Expired
}

// CheckFunc fetches the current charge state once.
type CheckFunc func(ctx context.Context) payment.Outcome

// Poller drives the confirmation countdown of one pending charge and guards
// manual status checks. onTimeout fires at most once, and never after a
// check has resolved the charge.
type Poller struct {
	mu        sync.Mutex
	countdown Countdown
	grace     int
	graceUsed int
	resolved  *payment.Outcome
	onTimeout func()
}

// NewPoller starts a countdown of seconds. grace is the number of checks
// still allowed after expiry before every check reports a timeout.
func NewPoller(seconds, grace int, onTimeout func()) *Poller {
	return &Poller{
		countdown: NewCountdown(seconds),
		grace:     grace,
		onTimeout: onTimeout,
	}
}

// Countdown returns the current countdown state.
func (p *Poller) Countdown() Countdown {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.countdown
}

// Tick advances the countdown and fires the timeout callback when it
// reaches zero. The callback runs without the poller lock held.
func (p *Poller) Tick() {
	p.mu.Lock()
	next, expired := p.countdown.Tick()
	p.countdown = next
	fire := expired && p.resolved == nil
	p.mu.Unlock()

	if fire && p.onTimeout != nil {
		p.onTimeout()
	}
}

// Stop halts the countdown. No timeout fires afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.countdown = p.countdown.Stop()
	p.mu.Unlock()
}

// CheckNow performs exactly one fetch, unless the charge was already
// resolved or the grace checks after expiry are used up. A navigate result
// stops the countdown before it can expire.
func (p *Poller) CheckNow(ctx context.Context, fetch CheckFunc) payment.Outcome {
	p.mu.Lock()
	if p.resolved != nil {
		out := *p.resolved
		p.mu.Unlock()
		return out
	}
	if p.countdown.Expired {
		if p.graceUsed >= p.grace {
			p.mu.Unlock()
			return payment.Fail(payment.ErrTimeout)
		}
		p.graceUsed++
	}
	p.mu.Unlock()

	out := fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if out.Kind == payment.KindNavigate {
		p.resolved = &out
		p.countdown = p.countdown.Stop()
		return out
	}
	if p.countdown.Expired && out.Kind == payment.KindPending {
		return payment.Fail(payment.ErrTimeout)
	}
	return out
}
