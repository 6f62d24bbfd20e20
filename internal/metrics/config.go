package metrics

import (
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/pcmonitor/metrics.db"
	defaultBatchSize    = 30
	defaultBatchTimeout = 30 * time.Second
)

type Config struct {
	Enabled         bool
	DBPath          string
	BatchSize       int
	BatchTimeout    time.Duration
	BackupOnMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Enabled:         false, // Disabled by default
		DBPath:          defaultDBPath,
		BatchSize:       defaultBatchSize,
		BatchTimeout:    defaultBatchTimeout,
		BackupOnMigrate: true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate when the archive is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch size must be positive")
	}
	if c.BatchTimeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch timeout must be positive")
	}

	return nil
}
