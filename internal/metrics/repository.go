package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db        *sql.DB
	logger    logger.Logger
	cfg       Config
	mu        sync.Mutex
	buffer    []telemetry.Snapshot
	full      chan struct{}
	shutdown  chan struct{}
	flushDone chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	// Open database with specific pragmas for better performance and safety
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	backupDir := ""
	if cfg.BackupOnMigrate {
		backupDir = backupDirFor(cfg.DBPath)
	}

	// Validate if schema is current, with backup if needed
	if err := ValidateAndUpdateSchema(db, backupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics repository initialized")

	repo := &repository{
		db:        db,
		logger:    log,
		cfg:       cfg,
		buffer:    make([]telemetry.Snapshot, 0, cfg.BatchSize),
		full:      make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		flushDone: make(chan struct{}),
	}

	go repo.flusher()

	return repo, nil
}

// Enqueue buffers a snapshot. A full batch wakes the flusher instead of
// writing on the caller's goroutine.
func (r *repository) Enqueue(snapshot telemetry.Snapshot) {
	r.mu.Lock()
	r.buffer = append(r.buffer, snapshot.Clone())
	full := len(r.buffer) >= r.cfg.BatchSize
	r.mu.Unlock()

	if full {
		select {
		case r.full <- struct{}{}:
		default:
		}
	}
}

// Count returns the number of archived snapshots
func (r *repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n); err != nil {
		return 0, errors.New().Wrap(ErrTransactionFailed, err)
	}
	return n, nil
}

func (r *repository) Close() error {
	r.closeOnce.Do(func() {
		// Signal the flusher goroutine to stop and wait for its final flush
		close(r.shutdown)
		<-r.flushDone

		// Checkpoint WAL and cleanup on close
		if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			r.closeErr = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: err.Error(),
			})
			r.db.Close()
			return
		}

		if err := r.db.Close(); err != nil {
			r.closeErr = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "close_database",
				Error: err.Error(),
			})
			return
		}

		r.logger.Info().Msg("Metrics repository closed gracefully")
	})

	return r.closeErr
}

func (r *repository) flusher() {
	defer close(r.flushDone)

	ticker := time.NewTicker(r.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.full:
			r.flush()
		case <-r.shutdown:
			r.flush()
			return
		}
	}
}

func (r *repository) flush() error {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = make([]telemetry.Snapshot, 0, r.cfg.BatchSize)
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Int("dropped", len(batch)).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(GetInsertSnapshotSQL())
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, snapshot := range batch {
		if _, err := stmt.Exec(snapshotValues(snapshot)...); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(batch)).Msg("Flushed snapshots to database")

	return nil
}
