// Package sampler drives collection cadence and owns the current
// snapshot.
package sampler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/collector"
	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

// Sampler runs the collectors on a fixed interval on its own goroutine.
// The latest snapshot is swapped in atomically, so readers see either
// the previous or the new snapshot in full.
type Sampler struct {
	collectors collector.Set
	sinks      []Sink
	logger     logger.Logger
	warmup     time.Duration

	current atomic.Pointer[telemetry.Snapshot]

	// Consecutive failures per domain, touched only by the loop goroutine
	failures [telemetry.DomainThermal + 1]int
	ticks    atomic.Uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func New(collectors collector.Set, opts ...Option) *Sampler {
	s := &Sampler{
		collectors: collectors,
		logger:     logger.New("sampler"),
		warmup:     defaultWarmup,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins sampling every interval. It fails if the sampler is
// already running or the interval is not positive, and waits for a
// previously stopped loop to exit before starting a new one.
func (s *Sampler) Start(interval time.Duration) error {
	errFactory := errors.New()

	if interval <= 0 {
		return errFactory.WithData(ErrInvalidInterval, interval.String())
	}

	if err := s.collectors.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	for {
		if s.stop != nil {
			s.mu.Unlock()
			return errFactory.New(ErrAlreadyRunning)
		}
		// A loop told to stop may still be finishing its tick
		prev := s.done
		if prev == nil || finished(prev) {
			break
		}
		s.mu.Unlock()
		<-prev
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(interval, s.stop, s.done)

	s.logger.Info().Str("interval", interval.String()).Msg("Sampler started")

	return nil
}

// Stop signals the loop and waits for it to exit. A tick in progress
// completes first. Safe to call repeatedly and from any goroutine.
func (s *Sampler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done

	s.logger.Info().Uint64("ticks", s.ticks.Load()).Msg("Sampler stopped")
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// CurrentSnapshot returns a copy of the latest published snapshot, or
// the zero Snapshot before the first tick.
func (s *Sampler) CurrentSnapshot() telemetry.Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap.Clone()
	}
	return telemetry.Snapshot{}
}

// Ticks returns the number of completed ticks since construction
func (s *Sampler) Ticks() uint64 {
	return s.ticks.Load()
}

func finished(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

func (s *Sampler) run(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	warmup := time.NewTimer(s.warmup)
	defer warmup.Stop()

	select {
	case <-stop:
		return
	case <-warmup.C:
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		started := time.Now()
		s.tick(started)

		wait := interval - time.Since(started)
		if wait <= 0 {
			s.logger.Debug().
				Str("interval", interval.String()).
				Str("overrun", (-wait).String()).
				Msg("Collection overran interval")
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Sampler) tick(started time.Time) {
	ctx := context.Background()

	var next telemetry.Snapshot
	if prev := s.current.Load(); prev != nil {
		next = prev.Clone()
	}

	if val, err := s.collectors.GPU.Collect(ctx); err != nil {
		s.failed(telemetry.DomainGPU, err)
	} else {
		next.GPU = val
		s.recovered(telemetry.DomainGPU)
	}

	if val, err := s.collectors.CPU.Collect(ctx); err != nil {
		s.failed(telemetry.DomainCPU, err)
	} else {
		next.CPU = val
		s.recovered(telemetry.DomainCPU)
	}

	if val, err := s.collectors.RAM.Collect(ctx); err != nil {
		s.failed(telemetry.DomainRAM, err)
	} else {
		next.RAM = val
		s.recovered(telemetry.DomainRAM)
	}

	if val, err := s.collectors.Storage.Collect(ctx); err != nil {
		s.failed(telemetry.DomainStorage, err)
	} else {
		next.Storage = val
		s.recovered(telemetry.DomainStorage)
	}

	if val, err := s.collectors.Power.Collect(ctx, next.CPU, next.GPU); err != nil {
		s.failed(telemetry.DomainPower, err)
	} else {
		next.Power = val
		s.recovered(telemetry.DomainPower)
	}

	if val, err := s.collectors.Thermal.Collect(ctx, next.CPU, next.GPU); err != nil {
		s.failed(telemetry.DomainThermal, err)
	} else {
		next.Thermal = val
		s.recovered(telemetry.DomainThermal)
	}

	next.CapturedAt = started
	s.current.Store(&next)
	s.ticks.Add(1)

	for _, sink := range s.sinks {
		sink.Enqueue(next.Clone())
	}
}

func (s *Sampler) failed(d telemetry.Domain, err error) {
	s.failures[d]++
	s.logger.Warn().
		Err(err).
		Str("domain", d.String()).
		Int("consecutive", s.failures[d]).
		Msg("Collector failed, keeping previous value")
}

func (s *Sampler) recovered(d telemetry.Domain) {
	if s.failures[d] == 0 {
		return
	}

	s.logger.Info().
		Str("domain", d.String()).
		Int("after", s.failures[d]).
		Msg("Collector recovered")
	s.failures[d] = 0
}
