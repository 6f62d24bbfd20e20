package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("INFO"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("bogus"))
}

func TestComponentField(t *testing.T) {
	logger.SetLogLevel(logger.DebugLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	var buf bytes.Buffer
	log := logger.NewWithWriter("sampler", &buf)
	log.Info().Int("tick", 3).Msg("tick complete")

	out := buf.String()
	assert.Contains(t, out, `"component":"sampler"`)
	assert.Contains(t, out, `"tick":3`)
	assert.Contains(t, out, `"message":"tick complete"`)
}

func TestErrorWithCode(t *testing.T) {
	logger.SetLogLevel(logger.DebugLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	var buf bytes.Buffer
	log := logger.NewWithWriter("datalog", &buf)
	log.ErrorWithCode(errors.New().New(errors.ErrShutdownFailed)).Msg("close failed")

	out := buf.String()
	assert.Contains(t, out, `"error_code":"shutdown_failed"`)
	assert.Contains(t, out, `"component":"datalog"`)
}

func TestLevelFiltering(t *testing.T) {
	logger.SetLogLevel(logger.WarnLevel)

	var buf bytes.Buffer
	log := logger.NewWithWriter("server", &buf)
	log.Debug().Msg("hidden")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopDiscards(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() {
		log.Error().Str("k", "v").Msg("dropped")
		log.ErrorWithCode(errors.New().New(errors.ErrInternal)).Send()
	})
}
