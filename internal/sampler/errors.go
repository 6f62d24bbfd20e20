package sampler

import "codeberg.org/mutker/pcmonitor/internal/errors"

const (
	ErrAlreadyRunning  = errors.ErrorCode("sampler_already_running")
	ErrInvalidInterval = errors.ErrorCode("sampler_invalid_interval")
)
