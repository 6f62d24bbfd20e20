package estimate_test

import (
	"testing"

	"codeberg.org/mutker/pcmonitor/internal/estimate"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestCPUPower(t *testing.T) {
	assert.Equal(t, uint32(25), estimate.CPUPower(0, 3500), "idle")
	assert.Equal(t, uint32(125), estimate.CPUPower(100, 3500), "full load at nominal clock")
	assert.Equal(t, uint32(75), estimate.CPUPower(50, 3500))
	// 25 + 100*1.0*1.5 = 175, capped at TDP+20
	assert.Equal(t, uint32(145), estimate.CPUPower(100, 7000))
	assert.Equal(t, uint32(125), estimate.CPUPower(250, 3500), "utilization clamps at 100%")
}

func TestGPUPower(t *testing.T) {
	assert.Equal(t, uint32(30), estimate.GPUPower(0))
	assert.Equal(t, uint32(190), estimate.GPUPower(50))
	assert.Equal(t, uint32(350), estimate.GPUPower(100))
	assert.Equal(t, uint32(350), estimate.GPUPower(140))
}

func TestPSUEfficiencyCurve(t *testing.T) {
	tests := []struct {
		name    string
		systemW uint32
		want    float64
	}{
		{"low load", 100, 82.0},
		{"rising", 300, 85.0 + (300.0/850.0*100.0-20)*0.1},
		{"plateau", 600, 88.0},
		{"falling", 800, 88.0 - (800.0/850.0*100.0-80)*0.15},
		{"floor", 2000, 75.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, estimate.PSUEfficiency(tt.systemW, 850), 1e-9)
		})
	}

	assert.Equal(t, 75.0, estimate.PSUEfficiency(100, 0), "unknown PSU rating")
}

func TestPowerUsesMeasuredGPUDraw(t *testing.T) {
	cpu := telemetry.CPUMetrics{UtilizationPercent: 0, CurrentClockMHz: 3500}

	measured := estimate.Power(cpu, telemetry.GPUMetrics{PowerDrawW: 200, UtilizationPercent: 10}, 850)
	assert.Equal(t, uint32(200), measured.GPUPowerW)
	assert.Equal(t, uint32(25+200+60), measured.SystemPowerW)
	assert.Equal(t, uint32(850), measured.PSUWattage)

	estimated := estimate.Power(cpu, telemetry.GPUMetrics{UtilizationPercent: 50}, 850)
	assert.Equal(t, uint32(190), estimated.GPUPowerW)
}

func TestThermal(t *testing.T) {
	cpu := telemetry.CPUMetrics{UtilizationPercent: 50, TemperatureC: 55}
	gpu := telemetry.GPUMetrics{UtilizationPercent: 50, TemperatureC: 70}

	m := estimate.Thermal(cpu, gpu)

	assert.Equal(t, uint32(55), m.CPUTempC)
	assert.Equal(t, uint32(70), m.GPUTempC)
	assert.Equal(t, uint32(45), m.MotherboardTempC)
	assert.Equal(t, uint32(45), m.CaseTempC)
	assert.Equal(t, []uint32{1300, 1500, 900}, m.FanSpeedsRPM)
}

func TestThermalColdComponents(t *testing.T) {
	m := estimate.Thermal(telemetry.CPUMetrics{TemperatureC: 20}, telemetry.GPUMetrics{TemperatureC: 0})
	assert.Equal(t, []uint32{800, 600, 600}, m.FanSpeedsRPM, "below threshold fans sit at base speed")
}

func TestFanRPMCeiling(t *testing.T) {
	assert.Equal(t, uint32(3000), estimate.FanRPM(200, 35, 800, 25, 3000))
}

func TestCPUTemperature(t *testing.T) {
	assert.Equal(t, uint32(35), estimate.CPUTemperature(0))
	assert.Equal(t, uint32(75), estimate.CPUTemperature(100))
	assert.Equal(t, uint32(75), estimate.CPUTemperature(400))
}

func TestGPUMemoryBandwidth(t *testing.T) {
	assert.Equal(t, uint64(640000), estimate.GPUMemoryBandwidth(10000))
}
