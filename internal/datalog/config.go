package datalog

import "codeberg.org/mutker/pcmonitor/internal/errors"

const (
	defaultFilePerm = 0o644
	defaultDirPerm  = 0o755
	defaultPath     = "pc_monitor_log.csv"
	bytesPerMB      = 1024 * 1024
)

type Config struct {
	// Path of the active log file. Rotated files are written next to it.
	Path string
	// Rotate enables size-based rotation
	Rotate bool
	// RotateBytes is the data size after which the active file is rotated
	RotateBytes int64
	// QueueLimit bounds pending entries; the oldest entry is dropped when
	// full. Zero means unbounded.
	QueueLimit int
}

func DefaultConfig() Config {
	return Config{
		Path:        defaultPath,
		Rotate:      true,
		RotateBytes: 100 * bytesPerMB,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Path == "" {
		return errFactory.WithData(ErrInvalidPath, "empty path")
	}
	if c.Rotate && c.RotateBytes <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "rotation threshold must be positive")
	}
	if c.QueueLimit < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "queue limit must not be negative")
	}

	return nil
}
