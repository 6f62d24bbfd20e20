// Package telemetry defines the hardware metric records that flow through
// the pipeline: one value type per domain and the Snapshot aggregating
// them at a single tick.
package telemetry

import "time"

// Snapshot is one complete set of domain metrics captured at a single
// tick. Snapshots are passed by value and never mutated after the
// sampler publishes them; use Clone before handing one to a component
// that may retain it.
type Snapshot struct {
	CapturedAt time.Time
	GPU        GPUMetrics
	CPU        CPUMetrics
	RAM        RAMMetrics
	Storage    StorageMetrics
	Power      PowerMetrics
	Thermal    ThermalMetrics
}

// Domain value objects

type GPUMetrics struct {
	VRAMTotalMB         uint32
	VRAMUsedMB          uint32
	CoreClockMHz        uint32
	MemoryClockMHz      uint32
	TemperatureC        uint32
	PowerDrawW          uint32
	PowerLimitW         uint32
	UtilizationPercent  uint32
	MemoryBandwidthMBps uint64
	FanSpeedPercent     []uint32
}

type CPUMetrics struct {
	CoreCount          uint32
	ThreadCount        uint32
	BaseClockMHz       uint32
	CurrentClockMHz    uint32
	TemperatureC       uint32
	UtilizationPercent float64
	L3CacheMB          uint32
}

type RAMMetrics struct {
	TotalMB            uint64
	UsedMB             uint64
	SpeedMHz           uint32
	LatencyCL          uint32
	UtilizationPercent float64
}

type StorageMetrics struct {
	SeqReadMBps     uint64
	SeqWriteMBps    uint64
	RandomReadIOPS  uint64
	RandomWriteIOPS uint64
	TemperatureC    uint32
	HealthPercent   float64
}

type PowerMetrics struct {
	PSUWattage        uint32
	SystemPowerW      uint32
	CPUPowerW         uint32
	GPUPowerW         uint32
	EfficiencyPercent float64
}

type ThermalMetrics struct {
	CPUTempC         uint32
	GPUTempC         uint32
	MotherboardTempC uint32
	CaseTempC        uint32
	FanSpeedsRPM     []uint32
}
