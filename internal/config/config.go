package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/logging"
)

const (
	// FileName is the config file base name, without extension
	FileName  = "hotscope"
	EnvPrefix = "HOTSCOPE"
)

// Config represents the hotscope configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis" toml:"analysis" json:"analysis"`
	Watch    WatchConfig    `mapstructure:"watch" toml:"watch" json:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging" toml:"logging" json:"logging"`
}

// AnalysisConfig configures the scope analyzer
type AnalysisConfig struct {
	IgnorePrefixes        []string `mapstructure:"ignorePrefixes" toml:"ignorePrefixes" json:"ignorePrefixes"`
	ComposerOwners        []string `mapstructure:"composerOwners" toml:"composerOwners" json:"composerOwners"`
	FunctionKeyAnnotation string   `mapstructure:"functionKeyAnnotation" toml:"functionKeyAnnotation" json:"functionKeyAnnotation"`
	LambdaMetafactory     string   `mapstructure:"lambdaMetafactory" toml:"lambdaMetafactory" json:"lambdaMetafactory"`
	// Parallel class analysis; 0 uses GOMAXPROCS
	Workers int `mapstructure:"workers" toml:"workers" json:"workers"`
}

// WatchConfig configures the class directory watcher
type WatchConfig struct {
	PollIntervalMs int      `mapstructure:"pollIntervalMs" toml:"pollIntervalMs" json:"pollIntervalMs"`
	DebounceMs     int      `mapstructure:"debounceMs" toml:"debounceMs" json:"debounceMs"`
	IgnorePatterns []string `mapstructure:"ignorePatterns" toml:"ignorePatterns" json:"ignorePatterns"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level" json:"level"`
	Format string `mapstructure:"format" toml:"format" json:"format"`
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s': %s", e.Field, e.Message)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	ac := analysis.DefaultConfig()
	return &Config{
		Analysis: AnalysisConfig{
			IgnorePrefixes:        ac.IgnorePrefixes,
			ComposerOwners:        ac.ComposerOwners,
			FunctionKeyAnnotation: ac.FunctionKeyAnnotation,
			LambdaMetafactory:     ac.LambdaMetafactory,
			Workers:               0,
		},
		Watch: WatchConfig{
			PollIntervalMs: 500,
			DebounceMs:     200,
			IgnorePatterns: []string{"*$$*", "META-INF/*"},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: logging.FormatHuman,
		},
	}
}

// Load reads configuration from path, or searches the working directory and
// $HOME/.config/hotscope when path is empty. A missing file is not an error.
// Environment variables such as HOTSCOPE_ANALYSIS_WORKERS override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("analysis.ignorePrefixes", d.Analysis.IgnorePrefixes)
	v.SetDefault("analysis.composerOwners", d.Analysis.ComposerOwners)
	v.SetDefault("analysis.functionKeyAnnotation", d.Analysis.FunctionKeyAnnotation)
	v.SetDefault("analysis.lambdaMetafactory", d.Analysis.LambdaMetafactory)
	v.SetDefault("analysis.workers", d.Analysis.Workers)

	v.SetDefault("watch.pollIntervalMs", d.Watch.PollIntervalMs)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("watch.ignorePatterns", d.Watch.IgnorePatterns)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return &ConfigError{Field: "analysis.workers", Message: "must not be negative (0 uses GOMAXPROCS)"}
	}
	if len(c.Analysis.ComposerOwners) == 0 {
		return &ConfigError{Field: "analysis.composerOwners", Message: "at least one owner is required"}
	}
	if c.Analysis.FunctionKeyAnnotation == "" {
		return &ConfigError{Field: "analysis.functionKeyAnnotation", Message: "must not be empty"}
	}
	if c.Watch.PollIntervalMs <= 0 {
		return &ConfigError{Field: "watch.pollIntervalMs", Message: "must be positive"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	for _, p := range c.Watch.IgnorePatterns {
		if _, err := path.Match(p, ""); err != nil {
			return &ConfigError{Field: "watch.ignorePatterns", Message: fmt.Sprintf("invalid pattern %q", p)}
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "silent", "off":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatHuman, logging.FormatJSON:
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// AnalyzerConfig converts to the analyzer's configuration
func (c *Config) AnalyzerConfig() analysis.Config {
	return analysis.Config{
		IgnorePrefixes:        append([]string(nil), c.Analysis.IgnorePrefixes...),
		ComposerOwners:        append([]string(nil), c.Analysis.ComposerOwners...),
		FunctionKeyAnnotation: c.Analysis.FunctionKeyAnnotation,
		LambdaMetafactory:     c.Analysis.LambdaMetafactory,
	}
}

func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Encode writes the configuration as TOML
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Save writes the configuration to a TOML file, creating parent directories
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := c.Encode(f); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
