// Package config holds the settings of the servant command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes environment overrides, e.g. SERVANT_LOG_LEVEL
const EnvPrefix = "SERVANT"

// Config holds all settings of the servant command
type Config struct {
	Log          LogConfig     `mapstructure:"log"`
	LogDir       string        `mapstructure:"log_dir"`  // worker stdout and stderr files
	RunDir       string        `mapstructure:"run_dir"`  // empty disables run directory records
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Strict       bool          `mapstructure:"strict"`
	EnvFiles     []string      `mapstructure:"env_files"` // TOML files or file:// URLs
	Concurrency  int           `mapstructure:"concurrency"`
	Metrics      bool          `mapstructure:"metrics"` // serve /metrics from workers
}

// LogConfig controls the command's own logging
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty logs to stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Defaults returns the built-in settings
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		LogDir:       os.TempDir(),
		ReadyTimeout: 5 * time.Second,
		PollInterval: 100 * time.Millisecond,
		Concurrency:  10,
		Metrics:      true,
	}
}

// SetDefaults registers Defaults with v and enables SERVANT_* overrides
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("run_dir", d.RunDir)
	v.SetDefault("ready_timeout", d.ReadyTimeout)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("env_files", d.EnvFiles)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("metrics", d.Metrics)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for values the command cannot run with
func (c Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.LogDir == "" {
		errs = append(errs, errors.New("log_dir: must not be empty"))
	}
	if c.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ready_timeout: must be positive, got %s", c.ReadyTimeout))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval: must be positive, got %s", c.PollInterval))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency: must be at least 1, got %d", c.Concurrency))
	}
	return errors.Join(errs...)
}
