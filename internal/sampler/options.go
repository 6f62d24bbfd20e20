package sampler

import (
	"time"

	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

const defaultWarmup = 100 * time.Millisecond

// Sink receives a private copy of every published snapshot. Enqueue must
// not block on I/O.
type Sink interface {
	Enqueue(snapshot telemetry.Snapshot)
}

type Option func(*Sampler)

// WithSinks appends downstream consumers, called in the given order
func WithSinks(sinks ...Sink) Option {
	return func(s *Sampler) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *Sampler) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithWarmup sets the delay before the first tick
func WithWarmup(d time.Duration) Option {
	return func(s *Sampler) {
		if d >= 0 {
			s.warmup = d
		}
	}
}
