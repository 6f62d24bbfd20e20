package telemetry

import "slices"

// Domain names one of the six metric groups in a Snapshot
type Domain int

const (
	DomainGPU Domain = iota
	DomainCPU
	DomainRAM
	DomainStorage
	DomainPower
	DomainThermal
)

// Domains lists every domain in collection order
var Domains = []Domain{DomainGPU, DomainCPU, DomainRAM, DomainStorage, DomainPower, DomainThermal}

func (d Domain) String() string {
	switch d {
	case DomainGPU:
		return "gpu"
	case DomainCPU:
		return "cpu"
	case DomainRAM:
		return "ram"
	case DomainStorage:
		return "storage"
	case DomainPower:
		return "power"
	case DomainThermal:
		return "thermal"
	default:
		return "unknown"
	}
}

// Clone returns a deep copy of s
func (s Snapshot) Clone() Snapshot {
	s.GPU = s.GPU.Clone()
	s.Thermal = s.Thermal.Clone()
	return s
}

// Clone returns a deep copy of m
func (m GPUMetrics) Clone() GPUMetrics {
	m.FanSpeedPercent = slices.Clone(m.FanSpeedPercent)
	return m
}

// Clone returns a deep copy of m
func (m ThermalMetrics) Clone() ThermalMetrics {
	m.FanSpeedsRPM = slices.Clone(m.FanSpeedsRPM)
	return m
}

// FanRPM returns the i-th fan reading, or zero when fewer fans were
// reported.
func (m ThermalMetrics) FanRPM(i int) uint32 {
	if i < 0 || i >= len(m.FanSpeedsRPM) {
		return 0
	}
	return m.FanSpeedsRPM[i]
}
