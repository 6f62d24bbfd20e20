// Package datalog persists snapshots to a CSV file on a dedicated
// worker, rotating the file by size.
package datalog

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

// Stats reports counters since the log was constructed
type Stats struct {
	Entries   uint64
	Bytes     int64
	Rotations uint64
	Dropped   uint64
	Pending   int
}

type Option func(*Log)

func WithLogger(log logger.Logger) Option {
	return func(l *Log) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithClock replaces the source of enqueue and rotation timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// Log is an append-only CSV writer fed through an in-memory FIFO queue.
// Enqueue never touches the file; a single worker goroutine owns it.
type Log struct {
	cfg    Config
	logger logger.Logger
	now    func() time.Time
	rename func(oldpath, newpath string) error

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []record
	active bool
	done   chan struct{}

	// Owned by the worker once it is running
	file  *os.File
	bytes int64

	entries   atomic.Uint64
	written   atomic.Int64
	rotations atomic.Uint64
	dropped   atomic.Uint64
}

func New(cfg Config, opts ...Option) *Log {
	l := &Log{
		cfg:    cfg,
		logger: logger.New("datalog"),
		now:    time.Now,
		rename: os.Rename,
	}
	l.cond = sync.NewCond(&l.mu)

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Initialize opens the log file for appending, writes the header if the
// file is empty and starts the worker.
func (l *Log) Initialize() error {
	errFactory := errors.New()

	if err := l.cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return errFactory.New(ErrAlreadyActive)
	}
	// A previous worker may still be draining after a concurrent Shutdown
	prev := l.done
	l.mu.Unlock()
	if prev != nil {
		<-prev
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		return errFactory.New(ErrAlreadyActive)
	}

	if dir := filepath.Dir(l.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return errFactory.Wrap(ErrOpenFailed, err)
		}
	}

	if err := l.open(); err != nil {
		return err
	}

	l.active = true
	l.done = make(chan struct{})
	go l.worker(l.done)

	l.logger.Info().
		Str("path", l.cfg.Path).
		Bool("rotate", l.cfg.Rotate).
		Int64("rotate_bytes", l.cfg.RotateBytes).
		Msg("Data log initialized")

	return nil
}

// Enqueue stamps the snapshot with the current time and queues it. It
// returns immediately and does nothing unless the log is active.
func (l *Log) Enqueue(snapshot telemetry.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return
	}

	l.queue = append(l.queue, record{at: l.now(), snap: snapshot})

	if l.cfg.QueueLimit > 0 && len(l.queue) > l.cfg.QueueLimit {
		l.queue[0] = record{}
		l.queue = l.queue[1:]
		if l.dropped.Add(1) == 1 {
			l.logger.Warn().Int("limit", l.cfg.QueueLimit).Msg("Data log queue full, dropping oldest entries")
		}
	}

	l.cond.Signal()
}

// Shutdown stops accepting entries and waits for the worker to write
// everything already queued and close the file. Safe to call repeatedly.
func (l *Log) Shutdown() {
	l.mu.Lock()
	done := l.done
	if l.active {
		l.active = false
		l.cond.Broadcast()
	}
	l.mu.Unlock()

	if done == nil {
		return
	}

	<-done
}

func (l *Log) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Log) Stats() Stats {
	l.mu.Lock()
	pending := len(l.queue)
	l.mu.Unlock()

	return Stats{
		Entries:   l.entries.Load(),
		Bytes:     l.written.Load(),
		Rotations: l.rotations.Load(),
		Dropped:   l.dropped.Load(),
		Pending:   pending,
	}
}

func (l *Log) worker(done chan struct{}) {
	defer close(done)

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && l.active {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			break
		}

		rec := l.queue[0]
		l.queue[0] = record{}
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.write(rec)
	}

	l.close()
	l.logger.Info().Uint64("entries", l.entries.Load()).Msg("Data log closed")
}

func (l *Log) write(rec record) {
	errFactory := errors.New()

	if l.file == nil {
		// Reopen after a failed rotation; the entry is lost if that fails too
		if err := l.open(); err != nil {
			l.logger.ErrorWithCode(errFactory.Wrap(ErrWriteFailed, err)).Msg("Dropping log entry")
			return
		}
	}

	row, err := encodeRow(rec.fields())
	if err != nil {
		l.logger.ErrorWithCode(errFactory.Wrap(ErrWriteFailed, err)).Msg("Failed to format log entry")
		return
	}

	n, err := l.file.Write(row)
	l.bytes += int64(n)
	l.written.Store(l.bytes)
	if err != nil {
		l.logger.ErrorWithCode(errFactory.Wrap(ErrWriteFailed, err)).Msg("Failed to write log entry")
		return
	}
	l.entries.Add(1)

	if l.cfg.Rotate && l.bytes > l.cfg.RotateBytes {
		l.rotate()
	}
}

// open opens the configured path for appending and writes the header if
// the file is empty. The data byte counter starts at zero.
func (l *Log) open() error {
	errFactory := errors.New()

	f, err := os.OpenFile(l.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(ErrOpenFailed, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errFactory.Wrap(ErrOpenFailed, err)
	}

	if info.Size() == 0 {
		header, err := encodeRow(Header)
		if err == nil {
			_, err = f.Write(header)
		}
		if err != nil {
			f.Close()
			return errFactory.Wrap(ErrOpenFailed, err)
		}
	}

	l.file = f
	l.bytes = 0
	l.written.Store(0)

	return nil
}

func (l *Log) close() {
	if l.file == nil {
		return
	}

	if err := l.file.Close(); err != nil {
		l.logger.Warn().Err(err).Str("path", l.cfg.Path).Msg("Failed to close data log")
	}
	l.file = nil
}
