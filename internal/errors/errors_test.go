package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidInterval)
	assert.Equal(t, "Invalid interval value", err.Error())
	assert.Equal(t, errors.ErrInvalidInterval, err.Code())

	err = errFactory.WithData(errors.ErrInvalidPort, 70000)
	assert.Equal(t, "Invalid port number: 70000", err.Error())

	err = errFactory.New(errors.ErrorCode("custom_code"))
	assert.Equal(t, "custom_code", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.New().Wrap(errors.ErrOperationFailed, cause)

	assert.Equal(t, "Operation failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.HasCode(err, errors.ErrOperationFailed))
}

func TestIsMatchesByCode(t *testing.T) {
	errFactory := errors.New()
	sentinel := errFactory.New(errors.ErrAlreadyRunning)

	err := errFactory.WithMessage(errors.ErrAlreadyRunning, "sampler already running")
	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, errFactory.New(errors.ErrNotRunning), sentinel)
}

func TestHasCodeThroughWrapping(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrTimeout)
	outer := errFactory.Wrap(errors.ErrCollectFailed, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.True(t, errors.HasCode(outer, errors.ErrCollectFailed))
	assert.False(t, errors.HasCode(outer, errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}
