package collector

import (
	"context"

	"codeberg.org/mutker/pcmonitor/internal/estimate"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

// Power estimates component and system draw from the CPU and GPU
// readings of the current tick.
type Power struct {
	PSUWattage uint32
}

func NewPower(psuWattage uint32) *Power {
	return &Power{PSUWattage: psuWattage}
}

func (p *Power) Collect(_ context.Context, cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) (telemetry.PowerMetrics, error) {
	return estimate.Power(cpu, gpu, p.PSUWattage), nil
}

// Thermal derives board temperatures and fan curves
type Thermal struct{}

func NewThermal() *Thermal {
	return &Thermal{}
}

func (*Thermal) Collect(_ context.Context, cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) (telemetry.ThermalMetrics, error) {
	return estimate.Thermal(cpu, gpu), nil
}
