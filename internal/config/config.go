package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvPrefix  = "PCMONITOR"
	defaultEnvFile    = ".env"
	defaultConfigPath = "/etc/pcmonitor.toml"
	configEnvVar      = "CONFIG"
)

// ErrHelp is returned by Load when -h or --help was requested
var ErrHelp = pflag.ErrHelp

type Config struct {
	Interval       time.Duration   `mapstructure:"interval"`
	LogLevel       string          `mapstructure:"log_level"`
	PIDFile        string          `mapstructure:"pid_file"`
	StatusInterval time.Duration   `mapstructure:"status_interval"`
	Log            LogConfig       `mapstructure:"log"`
	Server         ServerConfig    `mapstructure:"server"`
	Collector      CollectorConfig `mapstructure:"collector"`
	Hardware       HardwareConfig  `mapstructure:"hardware"`
	Metrics        MetricsConfig   `mapstructure:"metrics"`

	// ConfigFile is the file values were read from, empty when none was found
	ConfigFile string `mapstructure:"-"`
}

// LogConfig controls the CSV persistence log
type LogConfig struct {
	Path       string `mapstructure:"path"`
	Rotate     bool   `mapstructure:"rotate"`
	MaxSizeMB  int64  `mapstructure:"max_size_mb"`
	QueueLimit int    `mapstructure:"queue_limit"`
}

// ServerConfig controls the query server
type ServerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Port        int           `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Dashboard   string        `mapstructure:"dashboard"`
}

type CollectorConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// HardwareConfig carries figures the host cannot report about itself
type HardwareConfig struct {
	PSUWattage   uint32 `mapstructure:"psu_wattage"`
	RAMSpeedMHz  uint32 `mapstructure:"ram_speed_mhz"`
	RAMLatencyCL uint32 `mapstructure:"ram_latency_cl"`
}

type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

var defaults = map[string]any{
	"interval":                time.Second,
	"log_level":               "warning",
	"pid_file":                "/tmp/pcmonitor.pid",
	"status_interval":         5 * time.Second,
	"log.path":                "pc_monitor_log.csv",
	"log.rotate":              true,
	"log.max_size_mb":         100,
	"log.queue_limit":         0,
	"server.enabled":          false,
	"server.port":             8080,
	"server.read_timeout":     10 * time.Second,
	"server.dashboard":        "dashboard.html",
	"collector.timeout":       time.Duration(0),
	"hardware.psu_wattage":    850,
	"hardware.ram_speed_mhz":  3200,
	"hardware.ram_latency_cl": 16,
	"metrics.enabled":         false,
	"metrics.db_path":         "/var/lib/pcmonitor/metrics.db",
	"metrics.batch_size":      30,
	"metrics.batch_timeout":   30 * time.Second,
}

// Load reads configuration from defaults, the TOML config file, the
// environment (after loading a dotenv file) and finally the command line
// flags in args. args excludes the program name.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: defaultEnvPrefix,
		envFile:   defaultEnvFile,
	}
	for _, opt := range opts {
		opt(o)
	}

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrParseFlags, err)
	}

	// Existing environment variables win over the dotenv file
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	path, explicit := configPath(flags, o)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			// Only an explicitly requested file must exist
			if explicit || !isNotExist(err) {
				return nil, errFactory.WithData(errors.ErrReadConfig, struct {
					Path  string
					Error string
				}{
					Path:  path,
					Error: err.Error(),
				})
			}
			path = ""
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	cfg.ConfigFile = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every value and returns the first problem found
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}
	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.StatusInterval <= 0 {
		return invalid("status_interval", c.StatusInterval.String())
	}
	if c.Log.Path == "" {
		return invalid("log.path", c.Log.Path)
	}
	if c.Log.Rotate && c.Log.MaxSizeMB <= 0 {
		return invalid("log.max_size_mb", c.Log.MaxSizeMB)
	}
	if c.Log.QueueLimit < 0 {
		return invalid("log.queue_limit", c.Log.QueueLimit)
	}
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return errFactory.WithData(errors.ErrInvalidPort, c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return invalid("server.read_timeout", c.Server.ReadTimeout.String())
	}
	if c.Collector.Timeout < 0 {
		return invalid("collector.timeout", c.Collector.Timeout.String())
	}
	if c.Hardware.PSUWattage == 0 {
		return invalid("hardware.psu_wattage", c.Hardware.PSUWattage)
	}
	if c.Metrics.Enabled {
		if c.Metrics.DBPath == "" {
			return invalid("metrics.db_path", c.Metrics.DBPath)
		}
		if c.Metrics.BatchSize <= 0 {
			return invalid("metrics.batch_size", c.Metrics.BatchSize)
		}
		if c.Metrics.BatchTimeout <= 0 {
			return invalid("metrics.batch_timeout", c.Metrics.BatchTimeout.String())
		}
	}

	return nil
}

// RotateBytes converts the rotation threshold to bytes
func (c *Config) RotateBytes() int64 {
	return c.Log.MaxSizeMB * 1024 * 1024
}

func invalid(field string, value any) error {
	return errors.New().WithData(errors.ErrInvalidConfig, struct {
		Field string
		Value any
	}{
		Field: field,
		Value: value,
	})
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("pcmonitor", pflag.ContinueOnError)

	flags.StringP("config", "c", "", "Path to the TOML configuration file")
	flags.BoolP("web", "w", false, "Enable web server mode")
	flags.BoolP("interactive", "i", false, "Interactive console mode (default if no --web)")
	flags.IntP("port", "p", 8080, "Web server port")
	flags.Duration("interval", time.Second, "Sampling interval")
	flags.String("log-level", "warning", "Log level (debug, info, warning, error)")
	flags.String("log-file", "pc_monitor_log.csv", "CSV log path")
	flags.Int64("max-size", 100, "Rotate the CSV log after this many MB")
	flags.Bool("no-rotate", false, "Disable CSV log rotation")
	flags.String("dashboard", "dashboard.html", "Dashboard file served at /")
	flags.Duration("collector-timeout", 0, "Per collector call timeout, 0 disables")
	flags.Bool("metrics", false, "Archive snapshots to SQLite")
	flags.String("metrics-db", "/var/lib/pcmonitor/metrics.db", "SQLite archive path")
	flags.String("pid-file", "/tmp/pcmonitor.pid", "PID file path")

	return flags
}

var flagKeys = map[string]string{
	"port":              "server.port",
	"interval":          "interval",
	"log-level":         "log_level",
	"log-file":          "log.path",
	"max-size":          "log.max_size_mb",
	"dashboard":         "server.dashboard",
	"collector-timeout": "collector.timeout",
	"metrics":           "metrics.enabled",
	"metrics-db":        "metrics.db_path",
	"pid-file":          "pid_file",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	errFactory := errors.New()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	// Mode switches map onto server.enabled only when given
	if flags.Changed("web") {
		web, _ := flags.GetBool("web")
		v.Set("server.enabled", web)
	}
	if flags.Changed("interactive") {
		if interactive, _ := flags.GetBool("interactive"); interactive {
			v.Set("server.enabled", false)
		}
	}
	if flags.Changed("no-rotate") {
		noRotate, _ := flags.GetBool("no-rotate")
		v.Set("log.rotate", !noRotate)
	}

	return nil
}

// configPath picks --config, then the option, then $<PREFIX>_CONFIG, then
// the system default. explicit reports whether the file was asked for.
func configPath(flags *pflag.FlagSet, o *options) (string, bool) {
	if path, _ := flags.GetString("config"); path != "" {
		return path, true
	}
	if o.configPath != "" {
		return o.configPath, true
	}
	if path := os.Getenv(o.envPrefix + "_" + configEnvVar); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
