package datalog

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

const timestampLayout = "2006-01-02 15:04:05"

// Header lists the data row columns in order
var Header = []string{
	"Timestamp",
	"CPU_Usage_%",
	"CPU_Temp_C",
	"CPU_Clock_MHz",
	"GPU_Usage_%",
	"GPU_Temp_C",
	"GPU_Clock_MHz",
	"GPU_VRAM_Used_MB",
	"RAM_Usage_%",
	"RAM_Used_MB",
	"Storage_Read_MBps",
	"Storage_Write_MBps",
	"System_Power_W",
	"PSU_Efficiency_%",
	"Case_Temp_C",
	"Fan1_RPM",
	"Fan2_RPM",
	"Fan3_RPM",
}

// record is a snapshot paired with the time it was enqueued
type record struct {
	at   time.Time
	snap telemetry.Snapshot
}

func (r record) fields() []string {
	s := r.snap

	return []string{
		r.at.Local().Format(timestampLayout),
		percent(s.CPU.UtilizationPercent),
		uint32s(s.CPU.TemperatureC),
		uint32s(s.CPU.CurrentClockMHz),
		percent(float64(s.GPU.UtilizationPercent)),
		uint32s(s.GPU.TemperatureC),
		uint32s(s.GPU.CoreClockMHz),
		uint32s(s.GPU.VRAMUsedMB),
		percent(s.RAM.UtilizationPercent),
		strconv.FormatUint(s.RAM.UsedMB, 10),
		strconv.FormatUint(s.Storage.SeqReadMBps, 10),
		strconv.FormatUint(s.Storage.SeqWriteMBps, 10),
		uint32s(s.Power.SystemPowerW),
		percent(s.Power.EfficiencyPercent),
		uint32s(s.Thermal.CaseTempC),
		uint32s(s.Thermal.FanRPM(0)),
		uint32s(s.Thermal.FanRPM(1)),
		uint32s(s.Thermal.FanRPM(2)),
	}
}

// encodeRow renders one CSV line including the trailing newline
func encodeRow(fields []string) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func uint32s(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
