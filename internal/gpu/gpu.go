package gpu

import (
	"context"
	"sync"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/estimate"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const bytesPerMB = 1024 * 1024

// Collector reads the first NVML device. Required readings are memory,
// utilization and temperature; clocks, power and fans are best effort
// and leave zero values when the driver does not expose them.
type Collector struct {
	lib    nvmlController
	device deviceReader
	name   string
	logger logger.Logger
	mu     sync.Mutex
	closed bool
}

// Open initializes NVML and binds the first device
func Open(log logger.Logger) (*Collector, error) {
	return open(&nvmlWrapper{}, log)
}

func open(lib nvmlController, log logger.Logger) (*Collector, error) {
	errFactory := errors.New()

	if err := lib.Initialize(); err != nil {
		return nil, err
	}

	count, err := lib.GetDeviceCount()
	if err != nil {
		_ = lib.Shutdown()
		return nil, err
	}
	if count == 0 {
		_ = lib.Shutdown()
		return nil, errFactory.New(ErrDeviceNotFound)
	}

	device, err := lib.GetDevice(0)
	if err != nil {
		_ = lib.Shutdown()
		return nil, err
	}

	c := &Collector{lib: lib, device: device, logger: log}

	if name, ret := device.GetName(); IsNVMLSuccess(ret) {
		c.name = name
		log.Info().Str("gpu", name).Int("devices", count).Msg("Detected GPU")
	} else {
		log.Warn().Str("error", nvml.ErrorString(ret)).Msg("Failed to get GPU name")
	}

	return c, nil
}

// Name returns the product name reported by the driver
func (c *Collector) Name() string {
	return c.name
}

func (c *Collector) Collect(_ context.Context) (telemetry.GPUMetrics, error) {
	errFactory := errors.New()

	c.mu.Lock()
	defer c.mu.Unlock()

	var m telemetry.GPUMetrics

	if c.closed {
		return m, errFactory.New(ErrNotInitialized)
	}

	memory, ret := c.device.GetMemoryInfo()
	if !IsNVMLSuccess(ret) {
		return m, errFactory.Wrap(ErrMemoryReadFailed, newNVMLError(ret))
	}

	util, ret := c.device.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return m, errFactory.Wrap(ErrUtilizationReadFailed, newNVMLError(ret))
	}

	temp, ret := c.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return m, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}

	m.VRAMTotalMB = uint32(memory.Total / bytesPerMB)
	m.VRAMUsedMB = uint32(memory.Used / bytesPerMB)
	m.UtilizationPercent = util.Gpu
	m.TemperatureC = temp

	if clock, ret := c.device.GetClockInfo(nvml.CLOCK_GRAPHICS); IsNVMLSuccess(ret) {
		m.CoreClockMHz = clock
	}
	if clock, ret := c.device.GetClockInfo(nvml.CLOCK_MEM); IsNVMLSuccess(ret) {
		m.MemoryClockMHz = clock
		m.MemoryBandwidthMBps = estimate.GPUMemoryBandwidth(clock)
	}

	if power, err := readPower(c.device); err == nil {
		m.PowerDrawW = power.drawW
		m.PowerLimitW = power.limitW
	} else {
		c.logger.Debug().Err(err).Msg("GPU power reading unavailable")
	}

	if fans, err := readFanSpeeds(c.device); err == nil {
		m.FanSpeedPercent = fans
	} else {
		c.logger.Debug().Err(err).Msg("GPU fan reading unavailable")
	}

	return m, nil
}

// Close releases NVML. Collect fails after Close.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.lib.Shutdown()
}

// Unavailable stands in for a missing GPU. It reports zero readings so
// the estimators still produce power and thermal values, and warns once.
type Unavailable struct {
	once   sync.Once
	reason error
	logger logger.Logger
}

func NewUnavailable(reason error, log logger.Logger) *Unavailable {
	return &Unavailable{reason: reason, logger: log}
}

func (u *Unavailable) Collect(_ context.Context) (telemetry.GPUMetrics, error) {
	u.once.Do(func() {
		u.logger.Warn().Err(u.reason).Msg("GPU telemetry unavailable, reporting zero readings")
	})

	return telemetry.GPUMetrics{}, nil
}
