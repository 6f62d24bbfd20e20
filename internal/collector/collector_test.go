package collector

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSet() Set {
	return Set{
		GPU: Func[telemetry.GPUMetrics](func(context.Context) (telemetry.GPUMetrics, error) {
			return telemetry.GPUMetrics{TemperatureC: 60}, nil
		}),
		CPU: Func[telemetry.CPUMetrics](func(context.Context) (telemetry.CPUMetrics, error) {
			return telemetry.CPUMetrics{CoreCount: 8}, nil
		}),
		RAM: Func[telemetry.RAMMetrics](func(context.Context) (telemetry.RAMMetrics, error) {
			return telemetry.RAMMetrics{TotalMB: 32768}, nil
		}),
		Storage: Func[telemetry.StorageMetrics](func(context.Context) (telemetry.StorageMetrics, error) {
			return telemetry.StorageMetrics{}, nil
		}),
		Power:   NewPower(850),
		Thermal: NewThermal(),
	}
}

func TestSetValidate(t *testing.T) {
	require.NoError(t, staticSet().Validate())

	s := staticSet()
	s.RAM = nil
	s.Thermal = nil

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrMissingCollector))

	var coded errors.Error
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, []string{"ram", "thermal"}, coded.GetData())
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	c := WithTimeout[telemetry.CPUMetrics](staticSet().CPU, time.Second)

	m, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(8), m.CoreCount)
}

func TestWithTimeoutExpires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := Func[telemetry.RAMMetrics](func(context.Context) (telemetry.RAMMetrics, error) {
		<-release
		return telemetry.RAMMetrics{TotalMB: 1}, nil
	})

	start := time.Now()
	_, err := WithTimeout[telemetry.RAMMetrics](slow, 20*time.Millisecond).Collect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrCollectTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithDerivedTimeoutForwardsInputs(t *testing.T) {
	var gotCPU telemetry.CPUMetrics
	d := DerivedFunc[telemetry.PowerMetrics](func(_ context.Context, cpu telemetry.CPUMetrics, _ telemetry.GPUMetrics) (telemetry.PowerMetrics, error) {
		gotCPU = cpu
		return telemetry.PowerMetrics{SystemPowerW: 1}, nil
	})

	m, err := WithDerivedTimeout[telemetry.PowerMetrics](d, time.Second).
		Collect(context.Background(), telemetry.CPUMetrics{CoreCount: 4}, telemetry.GPUMetrics{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), m.SystemPowerW)
	assert.Equal(t, uint32(4), gotCPU.CoreCount)
}

func TestZeroTimeoutKeepsCollector(t *testing.T) {
	s := staticSet()
	assert.Same(t, s.Power, s.WithTimeout(0).Power)
}

func TestCPUCollectUsesSensor(t *testing.T) {
	c := &CPU{
		counts: func(_ context.Context, logical bool) (int, error) {
			if logical {
				return 16, nil
			}
			return 8, nil
		},
		percent: func(context.Context, time.Duration, bool) ([]float64, error) {
			return []float64{42.5}, nil
		},
		info: func(context.Context) ([]cpu.InfoStat, error) {
			return []cpu.InfoStat{{Mhz: 3600, CacheSize: 32768}, {Mhz: 4000, CacheSize: 32768}}, nil
		},
		temps: func(context.Context) ([]host.TemperatureStat, error) {
			return []host.TemperatureStat{
				{SensorKey: "nvme_composite", Temperature: 40},
				{SensorKey: "k10temp_tctl", Temperature: 61.5},
			}, nil
		},
	}

	m, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint32(8), m.CoreCount)
	assert.Equal(t, uint32(16), m.ThreadCount)
	assert.InDelta(t, 42.5, m.UtilizationPercent, 1e-9)
	assert.Equal(t, uint32(3600), m.BaseClockMHz)
	assert.Equal(t, uint32(3800), m.CurrentClockMHz)
	assert.Equal(t, uint32(32), m.L3CacheMB)
	assert.Equal(t, uint32(61), m.TemperatureC)
}

func TestCPUCollectEstimatesTemperature(t *testing.T) {
	c := &CPU{
		counts:  func(context.Context, bool) (int, error) { return 4, nil },
		percent: func(context.Context, time.Duration, bool) ([]float64, error) { return []float64{50}, nil },
		info:    func(context.Context) ([]cpu.InfoStat, error) { return nil, stderrors.New("unsupported") },
		temps:   func(context.Context) ([]host.TemperatureStat, error) { return nil, stderrors.New("no sensors") },
	}

	m, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(55), m.TemperatureC)
	assert.Zero(t, m.BaseClockMHz)
}

func TestCPUCollectFailsOnLoadError(t *testing.T) {
	c := &CPU{
		counts:  func(context.Context, bool) (int, error) { return 4, nil },
		percent: func(context.Context, time.Duration, bool) ([]float64, error) { return nil, stderrors.New("boom") },
	}

	_, err := c.Collect(context.Background())
	assert.True(t, errors.HasCode(err, ErrCPUReadFailed))
}

func TestRAMCollect(t *testing.T) {
	r := NewRAM(3200, 16)
	r.virtual = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 32 * 1024 * bytesPerMB, Used: 8 * 1024 * bytesPerMB, UsedPercent: 25}, nil
	}

	m, err := r.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, telemetry.RAMMetrics{
		TotalMB:            32768,
		UsedMB:             8192,
		SpeedMHz:           3200,
		LatencyCL:          16,
		UtilizationPercent: 25,
	}, m)
}

func TestStorageRatesFromCounterDeltas(t *testing.T) {
	now := time.Unix(1700000000, 0)
	reads := []disk.IOCountersStat{
		{ReadBytes: 0, WriteBytes: 0, ReadCount: 0, WriteCount: 0},
		{ReadBytes: 200 * bytesPerMB, WriteBytes: 50 * bytesPerMB, ReadCount: 4000, WriteCount: 1000},
	}
	call := 0

	s := NewStorage()
	s.now = func() time.Time { return now }
	s.counters = func(context.Context, ...string) (map[string]disk.IOCountersStat, error) {
		st := reads[call]
		call++
		return map[string]disk.IOCountersStat{"nvme0n1": st}, nil
	}

	first, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, first.SeqReadMBps, "first read only primes the baseline")

	now = now.Add(2 * time.Second)
	second, err := s.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(100), second.SeqReadMBps)
	assert.Equal(t, uint64(25), second.SeqWriteMBps)
	assert.Equal(t, uint64(2000), second.RandomReadIOPS)
	assert.Equal(t, uint64(500), second.RandomWriteIOPS)
	assert.InDelta(t, 100.0, second.HealthPercent, 1e-9)
}

func TestStorageCounterReset(t *testing.T) {
	assert.Equal(t, uint64(0), delta(5, 10))
	assert.Equal(t, uint64(5), delta(10, 5))
}

func TestEstimatedCollectors(t *testing.T) {
	cpu := telemetry.CPUMetrics{UtilizationPercent: 100, CurrentClockMHz: 3500, TemperatureC: 80}
	gpu := telemetry.GPUMetrics{UtilizationPercent: 100, TemperatureC: 75}

	p, err := NewPower(850).Collect(context.Background(), cpu, gpu)
	require.NoError(t, err)
	assert.Equal(t, uint32(125), p.CPUPowerW)
	assert.Equal(t, uint32(350), p.GPUPowerW)
	assert.Equal(t, uint32(535), p.SystemPowerW)

	th, err := NewThermal().Collect(context.Background(), cpu, gpu)
	require.NoError(t, err)
	assert.Equal(t, uint32(80), th.CPUTempC)
	assert.Len(t, th.FanSpeedsRPM, 3)
}
