package server

import "codeberg.org/mutker/pcmonitor/internal/errors"

const (
	ErrBindFailed     = errors.ErrorCode("server_bind_failed")
	ErrAlreadyRunning = errors.ErrorCode("server_already_running")
	ErrEncodeFailed   = errors.ErrorCode("server_encode_failed")
)
