package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger with the given level name
func Init(level string, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a LogLevel. Unknown names fall back to
// WarnLevel; config validation rejects them before this point.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "error":
		return ErrorLevel
	default:
		return WarnLevel
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(log.Error(), err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return withCode(log.Fatal(), err)
}

func withCode(e *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{e.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

// componentLogger tags every event with the owning component. The base
// logger is resolved per event so components created before Init still
// pick up the configured output.
type componentLogger struct {
	component string
	base      *zerolog.Logger
}

// New returns a Logger whose events carry a component field
func New(component string) Logger {
	return &componentLogger{component: component}
}

// NewWithWriter returns a Logger writing JSON lines to w, independent of
// the global output.
func NewWithWriter(component string, w io.Writer) Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	return &componentLogger{component: component, base: &l}
}

// Nop returns a Logger that discards everything
func Nop() Logger {
	l := zerolog.Nop()
	return &componentLogger{base: &l}
}

func (c *componentLogger) logger() *zerolog.Logger {
	if c.base != nil {
		return c.base
	}
	return &log
}

func (c *componentLogger) tag(e *zerolog.Event) *LogEvent {
	if c.component != "" {
		e = e.Str("component", c.component)
	}
	return &LogEvent{e}
}

func (c *componentLogger) Debug() *LogEvent {
	return c.tag(c.logger().Debug())
}

func (c *componentLogger) Info() *LogEvent {
	return c.tag(c.logger().Info())
}

func (c *componentLogger) Warn() *LogEvent {
	return c.tag(c.logger().Warn())
}

func (c *componentLogger) Error() *LogEvent {
	return c.tag(c.logger().Error())
}

func (c *componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	return c.tag(withCode(c.logger().Error(), err).Event)
}
