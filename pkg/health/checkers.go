package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines run.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is a dependency that can be pinged, such as a database pool or a
// redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// CapacityCheck fails when count reports more than limit items, e.g. live
// checkout sessions held in memory.
func CapacityCheck(what string, count func() int, limit int) CheckFunc {
	return func(_ context.Context) error {
		if n := count(); n > limit {
			return errors.Errorf("%d %s exceeds limit %d", n, what, limit)
		}
		return nil
	}
}
