package datalog

import (
	"fmt"
	"os"

	"codeberg.org/mutker/pcmonitor/internal/errors"
)

const rotationLayout = "20060102_150405"

// rotate closes the active file, moves it aside under a timestamped name
// and starts a fresh file at the configured path. A failed rename leaves
// the file in place and logging continues on it.
func (l *Log) rotate() {
	errFactory := errors.New()

	l.close()

	target := l.rotationTarget()
	if err := l.rename(l.cfg.Path, target); err != nil {
		l.logger.ErrorWithCode(errFactory.Wrap(ErrRotateFailed, err)).
			Str("path", l.cfg.Path).
			Str("target", target).
			Msg("Failed to rotate data log, continuing on current file")
	} else {
		l.rotations.Add(1)
		l.logger.Info().Str("rotated", target).Msg("Data log rotated")
	}

	if err := l.open(); err != nil {
		l.logger.ErrorWithCode(errFactory.Wrap(ErrRotateFailed, err)).Msg("Failed to reopen data log")
		return
	}
}

// rotationTarget returns <path>.<YYYYMMDD_HHMMSS>, adding a counter when
// a file with that name already exists. A name that cannot be checked is
// returned as is and the rename reports the problem.
func (l *Log) rotationTarget() string {
	base := l.cfg.Path + "." + l.now().Format(rotationLayout)

	target := base
	for i := 1; ; i++ {
		if _, err := os.Stat(target); err != nil {
			return target
		}
		target = fmt.Sprintf("%s-%d", base, i)
	}
}
