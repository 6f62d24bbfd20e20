package collector

import (
	"context"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

type result[T any] struct {
	value T
	err   error
}

// WithTimeout returns a Collector that gives up after d. The wrapped
// collector receives a context carrying the deadline; if it ignores the
// context its goroutine finishes in the background and the result is
// discarded.
func WithTimeout[T any](c Collector[T], d time.Duration) Collector[T] {
	if c == nil || d <= 0 {
		return c
	}

	return Func[T](func(ctx context.Context) (T, error) {
		return bounded(ctx, d, func(ctx context.Context) (T, error) {
			return c.Collect(ctx)
		})
	})
}

// WithDerivedTimeout is WithTimeout for DerivedCollector
func WithDerivedTimeout[T any](c DerivedCollector[T], d time.Duration) DerivedCollector[T] {
	if c == nil || d <= 0 {
		return c
	}

	return DerivedFunc[T](func(ctx context.Context, cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) (T, error) {
		return bounded(ctx, d, func(ctx context.Context) (T, error) {
			return c.Collect(ctx, cpu, gpu)
		})
	})
}

func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, errors.New().Wrap(ErrCollectTimeout, ctx.Err()).WithData(d.String())
	}
}
