package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails once the process has more than max goroutines,
// which usually means a leak in a handler or worker.
func GoroutineCountCheck(max int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, max)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any observed stop-the-world GC pause exceeded
// max, a signal of memory pressure or an oversized heap.
func GCMaxPauseCheck(max time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		for _, pause := range stats.Pause {
			if pause > max {
				return errors.Errorf("GC pause %s exceeds threshold %s", pause, max)
			}
		}
		return nil
	}
}
