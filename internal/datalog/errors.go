package datalog

import "codeberg.org/mutker/pcmonitor/internal/errors"

const (
	ErrInvalidPath   = errors.ErrorCode("datalog_invalid_path")
	ErrOpenFailed    = errors.ErrorCode("datalog_open_failed")
	ErrAlreadyActive = errors.ErrorCode("datalog_already_active")
	ErrWriteFailed   = errors.ErrorCode("datalog_write_failed")
	ErrRotateFailed  = errors.ErrorCode("datalog_rotate_failed")
)
