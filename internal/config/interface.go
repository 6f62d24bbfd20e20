package config

// Option adjusts how Load finds its sources
type Option func(*options)

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	envFile    string
}

// WithConfigFile specifies an explicit configuration file path. A
// --config flag still wins.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "PCMONITOR"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithEnvFile specifies the dotenv file read before the environment is
// consulted. Default is ".env" in the working directory.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
