// Package collector defines how the sampler obtains readings for each
// metric domain and provides the default implementations backed by
// gopsutil and the estimation models.
package collector

import (
	"context"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

// Collector produces one reading for a domain
type Collector[T any] interface {
	Collect(ctx context.Context) (T, error)
}

// DerivedCollector produces a reading computed from the CPU and GPU
// readings of the same tick.
type DerivedCollector[T any] interface {
	Collect(ctx context.Context, cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) (T, error)
}

// Func adapts a plain function to Collector
type Func[T any] func(ctx context.Context) (T, error)

func (f Func[T]) Collect(ctx context.Context) (T, error) {
	return f(ctx)
}

// DerivedFunc adapts a plain function to DerivedCollector
type DerivedFunc[T any] func(ctx context.Context, cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) (T, error)

func (f DerivedFunc[T]) Collect(ctx context.Context, cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) (T, error) {
	return f(ctx, cpu, gpu)
}

// Set groups one collector per domain
type Set struct {
	GPU     Collector[telemetry.GPUMetrics]
	CPU     Collector[telemetry.CPUMetrics]
	RAM     Collector[telemetry.RAMMetrics]
	Storage Collector[telemetry.StorageMetrics]
	Power   DerivedCollector[telemetry.PowerMetrics]
	Thermal DerivedCollector[telemetry.ThermalMetrics]
}

// Validate checks that every domain has a collector
func (s Set) Validate() error {
	errFactory := errors.New()

	missing := make([]string, 0)
	if s.GPU == nil {
		missing = append(missing, telemetry.DomainGPU.String())
	}
	if s.CPU == nil {
		missing = append(missing, telemetry.DomainCPU.String())
	}
	if s.RAM == nil {
		missing = append(missing, telemetry.DomainRAM.String())
	}
	if s.Storage == nil {
		missing = append(missing, telemetry.DomainStorage.String())
	}
	if s.Power == nil {
		missing = append(missing, telemetry.DomainPower.String())
	}
	if s.Thermal == nil {
		missing = append(missing, telemetry.DomainThermal.String())
	}

	if len(missing) > 0 {
		return errFactory.WithData(ErrMissingCollector, missing)
	}

	return nil
}

// WithTimeout bounds every collector in the set by d. A zero duration
// returns the set unchanged.
func (s Set) WithTimeout(d time.Duration) Set {
	if d <= 0 {
		return s
	}

	return Set{
		GPU:     WithTimeout(s.GPU, d),
		CPU:     WithTimeout(s.CPU, d),
		RAM:     WithTimeout(s.RAM, d),
		Storage: WithTimeout(s.Storage, d),
		Power:   WithDerivedTimeout(s.Power, d),
		Thermal: WithDerivedTimeout(s.Thermal, d),
	}
}
