package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/estimate"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const bytesPerMB = 1024 * 1024

// Sensor keys reported by common CPU temperature drivers
var cpuSensorPrefixes = []string{"coretemp_package", "k10temp_tctl", "zenpower_tdie", "cpu_thermal", "coretemp", "k10temp"}

// CPU reads processor counts, load, clocks and temperature through
// gopsutil. The temperature falls back to a load-based estimate when no
// known sensor is present.
type CPU struct {
	counts  func(ctx context.Context, logical bool) (int, error)
	percent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	info    func(ctx context.Context) ([]cpu.InfoStat, error)
	temps   func(ctx context.Context) ([]host.TemperatureStat, error)
}

func NewCPU() *CPU {
	return &CPU{
		counts:  cpu.CountsWithContext,
		percent: cpu.PercentWithContext,
		info:    cpu.InfoWithContext,
		temps:   host.SensorsTemperaturesWithContext,
	}
}

func (c *CPU) Collect(ctx context.Context) (telemetry.CPUMetrics, error) {
	errFactory := errors.New()

	var m telemetry.CPUMetrics

	physical, err := c.counts(ctx, false)
	if err != nil {
		return m, errFactory.Wrap(ErrCPUReadFailed, err).WithData("counts")
	}
	logical, err := c.counts(ctx, true)
	if err != nil {
		return m, errFactory.Wrap(ErrCPUReadFailed, err).WithData("counts")
	}

	load, err := c.percent(ctx, 0, false)
	if err != nil {
		return m, errFactory.Wrap(ErrCPUReadFailed, err).WithData("percent")
	}

	m.CoreCount = uint32(physical)
	m.ThreadCount = uint32(logical)
	if len(load) > 0 {
		m.UtilizationPercent = load[0]
	}

	// Clock and cache are best effort; some platforms report neither
	if infos, err := c.info(ctx); err == nil && len(infos) > 0 {
		m.BaseClockMHz = uint32(infos[0].Mhz)
		m.L3CacheMB = uint32(infos[0].CacheSize / 1024)

		var sum float64
		for _, i := range infos {
			sum += i.Mhz
		}
		m.CurrentClockMHz = uint32(sum / float64(len(infos)))
	}

	m.TemperatureC = c.temperature(ctx, m.UtilizationPercent)

	return m, nil
}

func (c *CPU) temperature(ctx context.Context, load float64) uint32 {
	// Partial sensor reads return data alongside a warning error
	temps, _ := c.temps(ctx)

	for _, prefix := range cpuSensorPrefixes {
		for _, t := range temps {
			if strings.HasPrefix(t.SensorKey, prefix) && t.Temperature > 0 {
				return uint32(t.Temperature)
			}
		}
	}

	return estimate.CPUTemperature(load)
}

// RAM reads physical memory usage. Module speed and CAS latency are not
// observable from userspace and come from configuration.
type RAM struct {
	SpeedMHz  uint32
	LatencyCL uint32

	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func NewRAM(speedMHz, latencyCL uint32) *RAM {
	return &RAM{
		SpeedMHz:  speedMHz,
		LatencyCL: latencyCL,
		virtual:   mem.VirtualMemoryWithContext,
	}
}

func (r *RAM) Collect(ctx context.Context) (telemetry.RAMMetrics, error) {
	vm, err := r.virtual(ctx)
	if err != nil {
		return telemetry.RAMMetrics{}, errors.New().Wrap(ErrRAMReadFailed, err)
	}

	return telemetry.RAMMetrics{
		TotalMB:            vm.Total / bytesPerMB,
		UsedMB:             vm.Used / bytesPerMB,
		SpeedMHz:           r.SpeedMHz,
		LatencyCL:          r.LatencyCL,
		UtilizationPercent: vm.UsedPercent,
	}, nil
}

// Storage derives throughput and IOPS from the difference between
// successive disk counter reads. The first call only records a baseline
// and reports zero rates.
type Storage struct {
	counters func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error)
	now      func() time.Time

	mu      sync.Mutex
	primed  bool
	last    ioTotals
	lastAt  time.Time
	healthy float64
}

type ioTotals struct {
	readBytes, writeBytes uint64
	reads, writes         uint64
}

func NewStorage() *Storage {
	return &Storage{
		counters: disk.IOCountersWithContext,
		now:      time.Now,
		healthy:  100,
	}
}

func (s *Storage) Collect(ctx context.Context) (telemetry.StorageMetrics, error) {
	stats, err := s.counters(ctx)
	if err != nil {
		return telemetry.StorageMetrics{}, errors.New().Wrap(ErrStorageReadFailed, err)
	}

	var cur ioTotals
	for _, st := range stats {
		cur.readBytes += st.ReadBytes
		cur.writeBytes += st.WriteBytes
		cur.reads += st.ReadCount
		cur.writes += st.WriteCount
	}
	at := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	m := telemetry.StorageMetrics{HealthPercent: s.healthy}

	if s.primed {
		if secs := at.Sub(s.lastAt).Seconds(); secs > 0 {
			m.SeqReadMBps = uint64(float64(delta(cur.readBytes, s.last.readBytes)) / bytesPerMB / secs)
			m.SeqWriteMBps = uint64(float64(delta(cur.writeBytes, s.last.writeBytes)) / bytesPerMB / secs)
			m.RandomReadIOPS = uint64(float64(delta(cur.reads, s.last.reads)) / secs)
			m.RandomWriteIOPS = uint64(float64(delta(cur.writes, s.last.writes)) / secs)
		}
	}

	s.last = cur
	s.lastAt = at
	s.primed = true

	return m, nil
}

// delta treats a counter that went backwards (device removed, counter
// wrapped) as no activity.
func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
