// Package config loads serman settings from config.toml, SERMAN_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BrainStation-23/serman/internal/logging"
	"github.com/BrainStation-23/serman/internal/paths"
	"github.com/BrainStation-23/serman/internal/service"
)

// Config is the resolved configuration.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// ServiceConfig controls service selection and tool invocation.
type ServiceConfig struct {
	// Pattern selects services from the enumeration output.
	Pattern string        `mapstructure:"pattern"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig bounds background work.
type SchedulerConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// LoggingConfig mirrors logging.Config in configurable form.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitorConfig controls the background monitor.
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"pattern":         "service.pattern",
	"timeout":         "service.timeout",
	"max-concurrency": "scheduler.max_concurrency",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-file":        "logging.file",
}

// Loader reads configuration through viper.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a Loader. When file is empty, config.toml is searched in
// the platform config directory and the working directory; a missing file
// is not an error.
func NewLoader(file string) *Loader {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(paths.GetConfigDirectory())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SERMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &Loader{viper: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.pattern", service.DefaultPattern)
	v.SetDefault("service.timeout", 30*time.Second)
	v.SetDefault("scheduler.max_concurrency", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", paths.GetLogPath())
	v.SetDefault("monitor.interval", 15*time.Second)
}

// SetDefaultLogFile changes the log file used when neither the config file
// nor a flag names one.
func (l *Loader) SetDefaultLogFile(path string) {
	l.viper.SetDefault("logging.file", path)
}

// BindFlags binds the known flags of fs to their config keys.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := l.viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and returns the validated result.
func (l *Loader) Load() (*Config, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.viper.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{}
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed returns the file that was read, or "".
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	var errs []error

	if _, err := regexp.Compile(c.Service.Pattern); err != nil {
		errs = append(errs, fmt.Errorf("service.pattern: %w", err))
	}
	if c.Service.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("service.timeout must be positive, got %s", c.Service.Timeout))
	}
	if c.Scheduler.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("scheduler.max_concurrency must be at least 1, got %d", c.Scheduler.MaxConcurrency))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	if c.Monitor.Interval < time.Second {
		errs = append(errs, fmt.Errorf("monitor.interval must be at least 1s, got %s", c.Monitor.Interval))
	}

	return errors.Join(errs...)
}

// LoggingConfig converts to a logging.Config.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Logging.Format
	lc.File = c.Logging.File
	return lc
}

// ProviderOptions converts to service provider options.
func (c *Config) ProviderOptions() (service.Options, error) {
	pattern, err := service.CompilePattern(c.Service.Pattern)
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{Pattern: pattern, Timeout: c.Service.Timeout}, nil
}
