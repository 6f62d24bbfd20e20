// Package pid keeps a single monitor instance per PID file
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/pcmonitor/internal/errors"
)

const filePerm = 0o600

// File guards a PID file path
type File struct {
	path string
}

// New returns a guard for path. An empty path uses pcmonitor.pid in the
// system temp directory.
func New(path string) *File {
	if path == "" {
		path = filepath.Join(os.TempDir(), "pcmonitor.pid")
	}
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Write writes the current process ID to the PID file. A file naming a
// live process yields ErrAlreadyRunning; a stale or unreadable one is
// replaced.
func (f *File) Write() error {
	errFactory := errors.New()

	if bytes, err := os.ReadFile(f.path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(bytes))); err == nil && alive(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, pid)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), filePerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func (f *File) Remove() error {
	errFactory := errors.New()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
