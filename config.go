package sentry_sender

import (
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const PluginName = "sentry_sender"

// Config represents the plugin configuration
type Config struct {
	// Enable/disable the plugin
	Enabled bool `mapstructure:"enabled"`

	// Sentry DSN, reports are silently dropped when empty
	DSN string `mapstructure:"dsn"`

	// HTTP transport settings
	Transport TransportConfig `mapstructure:"transport"`

	// Retry configuration
	Retry RetryConfig `mapstructure:"retry"`

	// Additional report fields appended to the "extra" object
	CustomFields []string `mapstructure:"custom_fields"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// TransportConfig contains HTTP transport settings
type TransportConfig struct {
	// Connection timeout
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// Socket (read) timeout
	SocketTimeout time.Duration `mapstructure:"socket_timeout"`
	// Enable gzip compression
	Compression bool `mapstructure:"compression"`
	// Skip TLS certificate verification
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	// Proxy URL
	Proxy string `mapstructure:"proxy"`
}

// RetryConfig contains retry mechanism settings
type RetryConfig struct {
	// Maximum retries after the first attempt, 0 disables retries
	MaxRetries *int `mapstructure:"max_retries"`
	// Initial backoff duration
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// Backoff multiplier
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	// Maximum backoff duration
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Log level for plugin operations
	Level string `mapstructure:"level"`
}

// InitDefaults initializes default configuration values
func (cfg *Config) InitDefaults() {
	if cfg.Transport.ConnectTimeout == 0 {
		cfg.Transport.ConnectTimeout = 5 * time.Second
	}
	if cfg.Transport.SocketTimeout == 0 {
		cfg.Transport.SocketTimeout = 20 * time.Second
	}

	if cfg.Retry.MaxRetries == nil {
		maxRetries := 3
		cfg.Retry.MaxRetries = &maxRetries
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = 1 * time.Second
	}
	if cfg.Retry.BackoffMultiplier == 0 {
		cfg.Retry.BackoffMultiplier = 2.0
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if cfg.Transport.ConnectTimeout < 0 || cfg.Transport.SocketTimeout < 0 {
		return fmt.Errorf("transport timeouts must not be negative")
	}

	if cfg.Retry.MaxRetries != nil && *cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative, got %d", *cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry backoff multiplier must be at least 1, got %v", cfg.Retry.BackoffMultiplier)
	}

	if _, err := cfg.ReportFields(); err != nil {
		return fmt.Errorf("custom_fields: %w", err)
	}

	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}

	return nil
}

// Retries returns the retry count, 0 when unset
func (r *RetryConfig) Retries() int {
	if r.MaxRetries == nil {
		return 0
	}
	return *r.MaxRetries
}

// ReportFields resolves CustomFields into report fields
func (cfg *Config) ReportFields() ([]ReportField, error) {
	return ParseReportFields(cfg.CustomFields)
}

// LoadConfigFile reads the sentry_sender section of a YAML file. Durations
// may be written as strings ("5s") and custom_fields as a comma separated list.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	section, ok := raw[PluginName]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q section", path, PluginName)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(section); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}
