package collector

import "codeberg.org/mutker/pcmonitor/internal/errors"

const (
	ErrMissingCollector = errors.ErrorCode("collector_missing")
	ErrCollectTimeout   = errors.ErrorCode("collector_timeout")

	ErrCPUReadFailed     = errors.ErrorCode("collector_cpu_read_failed")
	ErrRAMReadFailed     = errors.ErrorCode("collector_ram_read_failed")
	ErrStorageReadFailed = errors.ErrorCode("collector_storage_read_failed")
)
