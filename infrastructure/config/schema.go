// Package config provides configuration loading, validation, and live
// reloading for dwellsense.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors.
var (
	// ErrConfigNotFound indicates the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrInvalidFormat indicates the config could not be parsed.
	ErrInvalidFormat = errors.New("invalid config format")
	// ErrUnsupportedFormat indicates an unknown config file extension.
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrValidationFailed indicates the config failed validation.
	ErrValidationFailed = errors.New("config validation failed")
	// ErrMissingEnvVar indicates a referenced environment variable is unset.
	ErrMissingEnvVar = errors.New("missing environment variable")
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server" json:"server"`
	Storage  StorageConfig   `yaml:"storage" json:"storage"`
	Redis    RedisConfig     `yaml:"redis" json:"redis"`
	Bridge   BridgeConfig    `yaml:"bridge" json:"bridge"`
	HomeAPI  EndpointConfig  `yaml:"home_api" json:"home_api"`
	Runtime  EndpointConfig  `yaml:"runtime" json:"runtime"`
	TextGen  EndpointConfig  `yaml:"text_gen" json:"text_gen"`
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks"`
	Batch    BatchConfig     `yaml:"batch" json:"batch"`
	Tracing  TracingConfig   `yaml:"tracing" json:"tracing"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// ServerConfig configures the REST listener.
type ServerConfig struct {
	Address string `yaml:"address" json:"address"`
}

// StorageConfig configures the persistence backends.
type StorageConfig struct {
	// PostgresDSN is the connection string for the primary store.
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
	// Schema is the postgres schema name.
	Schema string `yaml:"schema" json:"schema"`
	// SQLitePath is the path of the local score snapshot database.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// RedisConfig configures the run lock backend.
type RedisConfig struct {
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	LockKey  string `yaml:"lock_key" json:"lock_key"`
}

// BridgeConfig configures the MQTT capability bridge.
type BridgeConfig struct {
	BrokerURL   string `yaml:"broker_url" json:"broker_url"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	Username    string `yaml:"username" json:"username"`
	Password    string `yaml:"password" json:"password"`
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`
}

// EndpointConfig configures an outbound HTTP dependency.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Token   string `yaml:"token" json:"token"`
}

// WebhookConfig configures one notification endpoint.
type WebhookConfig struct {
	URL     string   `yaml:"url" json:"url"`
	Secret  string   `yaml:"secret" json:"secret"`
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Events  []string `yaml:"events" json:"events"`
}

// BatchConfig configures the daily batch run.
type BatchConfig struct {
	// RunBudget bounds the whole run.
	RunBudget time.Duration `yaml:"run_budget" json:"run_budget"`
	// RefreshBudget bounds the wait for a bridge descriptor snapshot.
	RefreshBudget time.Duration `yaml:"refresh_budget" json:"refresh_budget"`
	// LockTTL is the run lock lease duration.
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
	// WindowDays is how many days of events each run analyzes.
	WindowDays int `yaml:"window_days" json:"window_days"`
	// TopN caps the suggestion shortlist.
	TopN int `yaml:"top_n" json:"top_n"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: ":8080"},
		Storage: StorageConfig{
			Schema:     "dwellsense",
			SQLitePath: "dwellsense-scores.db",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			LockKey: "dwellsense:batch:lock",
		},
		Bridge: BridgeConfig{
			BrokerURL:   "tcp://localhost:1883",
			ClientID:    "dwellsense-bridge",
			TopicPrefix: "zigbee2mqtt",
		},
		HomeAPI: EndpointConfig{BaseURL: "http://localhost:8123"},
		Runtime: EndpointConfig{BaseURL: "http://localhost:8123"},
		TextGen: EndpointConfig{BaseURL: "http://localhost:8600"},
		Batch: BatchConfig{
			RunBudget:     15 * time.Minute,
			RefreshBudget: 30 * time.Second,
			LockTTL:       20 * time.Minute,
			WindowDays:    30,
			TopN:          7,
		},
		Tracing: TracingConfig{SampleRate: 1.0},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address must not be empty"))
	}
	if c.Batch.RunBudget <= 0 {
		errs = append(errs, errors.New("batch.run_budget must be positive"))
	}
	if c.Batch.LockTTL <= c.Batch.RunBudget {
		errs = append(errs, errors.New("batch.lock_ttl must exceed batch.run_budget"))
	}
	if c.Batch.WindowDays <= 0 {
		errs = append(errs, errors.New("batch.window_days must be positive"))
	}
	if c.Batch.TopN < 5 || c.Batch.TopN > 10 {
		errs = append(errs, errors.New("batch.top_n must be between 5 and 10"))
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			errs = append(errs, fmt.Errorf("webhooks[%d].url must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrValidationFailed, errors.Join(errs...))
	}
	return nil
}
