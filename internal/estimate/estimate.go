// Package estimate holds approximation models for readings the hardware
// does not expose directly. Every function is pure so a sensor-backed
// collector can replace any of them without touching the pipeline.
package estimate

import "codeberg.org/mutker/pcmonitor/internal/telemetry"

const (
	cpuIdleW       = 25
	cpuTDPW        = 125
	cpuOverheadW   = 20
	cpuNominalMHz  = 3500.0
	maxFreqFactor  = 1.5
	gpuIdleW       = 30
	gpuMaxW        = 350
	motherboardW   = 25
	caseFansW      = 15
	miscW          = 20
	minEfficiency  = 75.0
	gpuBusWidthBit = 256
)

// CPUPower estimates package power from utilization and clock. Power
// scales linearly between idle and TDP with load, weighted by clock
// relative to nominal, and is capped slightly above TDP.
func CPUPower(utilizationPercent float64, clockMHz uint32) uint32 {
	load := clampFloat(utilizationPercent/100.0, 0, 1)
	freq := min(float64(clockMHz)/cpuNominalMHz, maxFreqFactor)

	watts := cpuIdleW + (cpuTDPW-cpuIdleW)*load*freq
	return min(uint32(watts), cpuTDPW+cpuOverheadW)
}

// GPUPower estimates board power from utilization alone
func GPUPower(utilizationPercent uint32) uint32 {
	load := clampFloat(float64(utilizationPercent)/100.0, 0, 1)
	return uint32(gpuIdleW + (gpuMaxW-gpuIdleW)*load)
}

// SystemPower adds a fixed allowance for motherboard, fans and
// peripherals to the CPU and GPU draw.
func SystemPower(cpuW, gpuW uint32) uint32 {
	return cpuW + gpuW + motherboardW + caseFansW + miscW
}

// PSUEfficiency follows an 80+ Gold curve: flat at low load, rising to a
// plateau at mid load, and falling off above 80% load. Never below 75%.
func PSUEfficiency(systemW, ratedW uint32) float64 {
	if ratedW == 0 {
		return minEfficiency
	}

	load := float64(systemW) / float64(ratedW) * 100.0

	var eff float64
	switch {
	case load < 20:
		eff = 82.0
	case load < 50:
		eff = 85.0 + (load-20)*0.1
	case load < 80:
		eff = 88.0
	default:
		eff = 88.0 - (load-80)*0.15
	}

	return max(eff, minEfficiency)
}

// Power builds a full PowerMetrics value. A non-zero measured GPU draw
// is used as-is; otherwise the GPU draw is estimated from utilization.
func Power(cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics, psuW uint32) telemetry.PowerMetrics {
	cpuW := CPUPower(cpu.UtilizationPercent, cpu.CurrentClockMHz)

	gpuW := gpu.PowerDrawW
	if gpuW == 0 {
		gpuW = GPUPower(gpu.UtilizationPercent)
	}

	system := SystemPower(cpuW, gpuW)

	return telemetry.PowerMetrics{
		PSUWattage:        psuW,
		SystemPowerW:      system,
		CPUPowerW:         cpuW,
		GPUPowerW:         gpuW,
		EfficiencyPercent: PSUEfficiency(system, psuW),
	}
}

// CPUTemperature approximates die temperature from load
func CPUTemperature(utilizationPercent float64) uint32 {
	return 35 + uint32(clampFloat(utilizationPercent, 0, 100)*0.4)
}

// Thermal derives board and case temperatures and fan curves from the
// CPU and GPU readings of the same tick.
func Thermal(cpu telemetry.CPUMetrics, gpu telemetry.GPUMetrics) telemetry.ThermalMetrics {
	cpuUtil := clampFloat(cpu.UtilizationPercent, 0, 100)
	gpuUtil := clampFloat(float64(gpu.UtilizationPercent), 0, 100)

	m := telemetry.ThermalMetrics{
		CPUTempC:         cpu.TemperatureC,
		GPUTempC:         gpu.TemperatureC,
		MotherboardTempC: uint32(35 + cpuUtil*0.2),
		CaseTempC:        uint32(30 + (cpuUtil+gpuUtil)*0.15),
	}

	m.FanSpeedsRPM = []uint32{
		FanRPM(m.CPUTempC, 35, 800, 25, 3000),
		FanRPM(m.GPUTempC, 40, 600, 30, 2500),
		FanRPM(m.CaseTempC, 25, 500, 20, 1800),
	}

	return m
}

// FanRPM is a linear fan curve: base RPM at or below the threshold
// temperature, rising by slope RPM per degree, capped at ceiling.
func FanRPM(tempC, thresholdC, base, slope, ceiling uint32) uint32 {
	if tempC <= thresholdC {
		return min(base, ceiling)
	}
	return min(base+(tempC-thresholdC)*slope, ceiling)
}

// GPUMemoryBandwidth estimates bandwidth in MB/s for a double data rate
// bus of the default width.
func GPUMemoryBandwidth(memoryClockMHz uint32) uint64 {
	return uint64(memoryClockMHz) * 2 * gpuBusWidthBit / 8
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
