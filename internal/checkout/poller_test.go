package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

func TestCountdown_Tick(t *testing.T) {
	c := NewCountdown(DefaultCountdownSeconds)
	assert.Equal(t, 600, c.Remaining)

	var expiries int
	for i := 0; i < 700; i++ {
		var expired bool
		c, expired = c.Tick()
		if expired {
			expiries++
		}
	}

	assert.Equal(t, 1, expiries)
	assert.Equal(t, 0, c.Remaining)
	assert.True(t, c.Expired)
	assert.False(t, c.Active())
}

func TestCountdown_Stop(t *testing.T) {
	c := NewCountdown(2).Stop()
	c, expired := c.Tick()
	c, expired2 := c.Tick()

	assert.False(t, expired)
	assert.False(t, expired2)
	assert.Equal(t, 2, c.Remaining)
}

func TestPoller_TimeoutFiresOnce(t *testing.T) {
	var fired int
	p := NewPoller(3, 1, func() { fired++ })

	for i := 0; i < 10; i++ {
		p.Tick()
	}

	assert.Equal(t, 1, fired)
	assert.True(t, p.Countdown().Expired)
}

func TestPoller_CheckNow(t *testing.T) {
	p := NewPoller(600, 1, nil)
	var fetches int
	pending := func(context.Context) payment.Outcome {
		fetches++
		return payment.Pending()
	}

	out := p.CheckNow(context.Background(), pending)
	assert.Equal(t, payment.KindPending, out.Kind)
	assert.Equal(t, 1, fetches)

	out = p.CheckNow(context.Background(), func(context.Context) payment.Outcome {
		fetches++
		return payment.Navigate("/orders/ord_1")
	})
	assert.Equal(t, payment.KindNavigate, out.Kind)
	assert.Equal(t, 2, fetches)
	assert.True(t, p.Countdown().Stopped)

	// Resolved: no further fetches.
	out = p.CheckNow(context.Background(), pending)
	assert.Equal(t, payment.KindNavigate, out.Kind)
	assert.Equal(t, 2, fetches)
}

func TestPoller_NoTimeoutAfterNavigate(t *testing.T) {
	var fired int
	p := NewPoller(2, 1, func() { fired++ })

	p.CheckNow(context.Background(), func(context.Context) payment.Outcome {
		return payment.Navigate("/orders/ord_1")
	})
	for i := 0; i < 5; i++ {
		p.Tick()
	}

	assert.Zero(t, fired)
}

func TestPoller_GraceCheck(t *testing.T) {
	p := NewPoller(1, 1, nil)
	p.Tick()
	require.True(t, p.Countdown().Expired)

	var fetches int
	pending := func(context.Context) payment.Outcome {
		fetches++
		return payment.Pending()
	}

	out := p.CheckNow(context.Background(), pending)
	assert.Equal(t, 1, fetches, "one grace check still reaches the server")
	assert.ErrorIs(t, out.Err, payment.ErrTimeout)

	out = p.CheckNow(context.Background(), pending)
	assert.Equal(t, 1, fetches, "grace exhausted")
	assert.ErrorIs(t, out.Err, payment.ErrTimeout)
}

func TestPoller_GraceCheckCanSettle(t *testing.T) {
	p := NewPoller(1, 1, nil)
	p.Tick()

	out := p.CheckNow(context.Background(), func(context.Context) payment.Outcome {
		return payment.Navigate("/orders/ord_1")
	})
	assert.Equal(t, payment.KindNavigate, out.Kind)
}

func TestPoller_TimeoutExclusiveWithPendingCheck(t *testing.T) {
	var fired atomic.Int32
	p := NewPoller(1, 1, func() { fired.Add(1) })

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.CheckNow(context.Background(), func(context.Context) payment.Outcome {
			close(entered)
			<-release
			return payment.Pending()
		})
	}()

	<-entered
	for i := 0; i < 5; i++ {
		p.Tick()
	}
	close(release)
	wg.Wait()
	p.Tick()

	assert.Equal(t, int32(1), fired.Load())
}
