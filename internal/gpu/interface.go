// Package gpu reads NVIDIA GPU telemetry through NVML
package gpu

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// deviceReader is the read-only subset of nvml.Device the collector uses
type deviceReader interface {
	GetName() (string, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
	GetClockInfo(clockType nvml.ClockType) (uint32, nvml.Return)
	GetTemperature(sensor nvml.TemperatureSensors) (uint32, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetPowerUsage() (uint32, nvml.Return)
	GetPowerManagementLimit() (uint32, nvml.Return)
	GetNumFans() (int, nvml.Return)
	GetFanSpeed_v2(fan int) (uint32, nvml.Return)
}

// nvmlController abstracts NVML library lifecycle for testing
type nvmlController interface {
	Initialize() error
	Shutdown() error
	GetDeviceCount() (int, error)
	GetDevice(index int) (deviceReader, error)
}
