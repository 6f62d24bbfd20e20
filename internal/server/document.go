package server

import (
	"math"
	"slices"

	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// metricsDocument is the /api/metrics response body
type metricsDocument struct {
	Timestamp int64           `json:"timestamp"`
	GPU       gpuDocument     `json:"gpu"`
	CPU       cpuDocument     `json:"cpu"`
	RAM       ramDocument     `json:"ram"`
	Storage   storageDocument `json:"storage"`
	Power     powerDocument   `json:"power"`
	Thermal   thermalDocument `json:"thermal"`
}

type gpuDocument struct {
	VRAMUsedMB          uint32   `json:"vram_used_mb"`
	VRAMTotalMB         uint32   `json:"vram_total_mb"`
	CoreClockMHz        uint32   `json:"core_clock_mhz"`
	MemoryClockMHz      uint32   `json:"memory_clock_mhz"`
	TemperatureC        uint32   `json:"temperature_c"`
	UtilizationPercent  uint32   `json:"utilization_percent"`
	PowerDrawW          uint32   `json:"power_draw_w"`
	PowerLimitW         uint32   `json:"power_limit_w"`
	MemoryBandwidthMBps uint64   `json:"memory_bandwidth_mbps"`
	FanSpeedPercent     []uint32 `json:"fan_speed_percent"`
}

type cpuDocument struct {
	UtilizationPercent float64 `json:"utilization_percent"`
	TemperatureC       uint32  `json:"temperature_c"`
	BaseClockMHz       uint32  `json:"base_clock_mhz"`
	CurrentClockMHz    uint32  `json:"current_clock_mhz"`
	CoreCount          uint32  `json:"core_count"`
	ThreadCount        uint32  `json:"thread_count"`
	L3CacheMB          uint32  `json:"l3_cache_mb"`
}

type ramDocument struct {
	UsedMB             uint64  `json:"used_mb"`
	TotalMB            uint64  `json:"total_mb"`
	UtilizationPercent float64 `json:"utilization_percent"`
	SpeedMHz           uint32  `json:"speed_mhz"`
	LatencyCL          uint32  `json:"latency_cl"`
}

type storageDocument struct {
	SeqReadMBps     uint64  `json:"seq_read_mbps"`
	SeqWriteMBps    uint64  `json:"seq_write_mbps"`
	RandomReadIOPS  uint64  `json:"random_read_iops"`
	RandomWriteIOPS uint64  `json:"random_write_iops"`
	HealthPercent   float64 `json:"health_percent"`
}

type powerDocument struct {
	SystemPowerW      uint32  `json:"system_power_w"`
	CPUPowerW         uint32  `json:"cpu_power_w"`
	GPUPowerW         uint32  `json:"gpu_power_w"`
	PSUWattage        uint32  `json:"psu_wattage"`
	EfficiencyPercent float64 `json:"efficiency_percent"`
}

type thermalDocument struct {
	CPUTempC         uint32   `json:"cpu_temp_c"`
	GPUTempC         uint32   `json:"gpu_temp_c"`
	MotherboardTempC uint32   `json:"motherboard_temp_c"`
	CaseTempC        uint32   `json:"case_temp_c"`
	FanSpeedsRPM     []uint32 `json:"fan_speeds_rpm"`
}

func newMetricsDocument(s telemetry.Snapshot) metricsDocument {
	var ts int64
	if !s.CapturedAt.IsZero() {
		ts = s.CapturedAt.Unix()
	}

	return metricsDocument{
		Timestamp: ts,
		GPU: gpuDocument{
			VRAMUsedMB:          s.GPU.VRAMUsedMB,
			VRAMTotalMB:         s.GPU.VRAMTotalMB,
			CoreClockMHz:        s.GPU.CoreClockMHz,
			MemoryClockMHz:      s.GPU.MemoryClockMHz,
			TemperatureC:        s.GPU.TemperatureC,
			UtilizationPercent:  s.GPU.UtilizationPercent,
			PowerDrawW:          s.GPU.PowerDrawW,
			PowerLimitW:         s.GPU.PowerLimitW,
			MemoryBandwidthMBps: s.GPU.MemoryBandwidthMBps,
			FanSpeedPercent:     nonNil(s.GPU.FanSpeedPercent),
		},
		CPU: cpuDocument{
			UtilizationPercent: round1(s.CPU.UtilizationPercent),
			TemperatureC:       s.CPU.TemperatureC,
			BaseClockMHz:       s.CPU.BaseClockMHz,
			CurrentClockMHz:    s.CPU.CurrentClockMHz,
			CoreCount:          s.CPU.CoreCount,
			ThreadCount:        s.CPU.ThreadCount,
			L3CacheMB:          s.CPU.L3CacheMB,
		},
		RAM: ramDocument{
			UsedMB:             s.RAM.UsedMB,
			TotalMB:            s.RAM.TotalMB,
			UtilizationPercent: round1(s.RAM.UtilizationPercent),
			SpeedMHz:           s.RAM.SpeedMHz,
			LatencyCL:          s.RAM.LatencyCL,
		},
		Storage: storageDocument{
			SeqReadMBps:     s.Storage.SeqReadMBps,
			SeqWriteMBps:    s.Storage.SeqWriteMBps,
			RandomReadIOPS:  s.Storage.RandomReadIOPS,
			RandomWriteIOPS: s.Storage.RandomWriteIOPS,
			HealthPercent:   round1(s.Storage.HealthPercent),
		},
		Power: powerDocument{
			SystemPowerW:      s.Power.SystemPowerW,
			CPUPowerW:         s.Power.CPUPowerW,
			GPUPowerW:         s.Power.GPUPowerW,
			PSUWattage:        s.Power.PSUWattage,
			EfficiencyPercent: round1(s.Power.EfficiencyPercent),
		},
		Thermal: thermalDocument{
			CPUTempC:         s.Thermal.CPUTempC,
			GPUTempC:         s.Thermal.GPUTempC,
			MotherboardTempC: s.Thermal.MotherboardTempC,
			CaseTempC:        s.Thermal.CaseTempC,
			FanSpeedsRPM:     nonNil(s.Thermal.FanSpeedsRPM),
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// nonNil keeps empty readings encoded as [] rather than null
func nonNil(v []uint32) []uint32 {
	if v == nil {
		return []uint32{}
	}
	return slices.Clone(v)
}
