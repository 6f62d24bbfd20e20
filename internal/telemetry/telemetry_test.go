package telemetry_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestCloneIsDeep(t *testing.T) {
	orig := telemetry.Snapshot{
		CapturedAt: time.Unix(1700000000, 0),
		GPU:        telemetry.GPUMetrics{FanSpeedPercent: []uint32{40, 45}},
		Thermal:    telemetry.ThermalMetrics{FanSpeedsRPM: []uint32{1200, 1000, 800}},
	}

	clone := orig.Clone()
	clone.GPU.FanSpeedPercent[0] = 99
	clone.Thermal.FanSpeedsRPM[2] = 1

	assert.Equal(t, uint32(40), orig.GPU.FanSpeedPercent[0])
	assert.Equal(t, uint32(800), orig.Thermal.FanSpeedsRPM[2])
	assert.Equal(t, orig.CapturedAt, clone.CapturedAt)
}

func TestCloneKeepsNilSlices(t *testing.T) {
	var s telemetry.Snapshot
	clone := s.Clone()
	assert.Nil(t, clone.Thermal.FanSpeedsRPM)
	assert.Nil(t, clone.GPU.FanSpeedPercent)
}

func TestFanRPMPadsMissing(t *testing.T) {
	m := telemetry.ThermalMetrics{FanSpeedsRPM: []uint32{1500}}
	assert.Equal(t, uint32(1500), m.FanRPM(0))
	assert.Equal(t, uint32(0), m.FanRPM(1))
	assert.Equal(t, uint32(0), m.FanRPM(2))
	assert.Equal(t, uint32(0), m.FanRPM(-1))
}

func TestDomainNames(t *testing.T) {
	names := make([]string, 0, len(telemetry.Domains))
	for _, d := range telemetry.Domains {
		names = append(names, d.String())
	}
	assert.Equal(t, []string{"gpu", "cpu", "ram", "storage", "power", "thermal"}, names)
}
