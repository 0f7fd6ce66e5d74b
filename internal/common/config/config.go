package config

import (
	"errors"
	"fmt"
)

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Redis          RedisConfig             `mapstructure:"redis"`
	Assistant      AssistantConfig         `mapstructure:"assistant"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	Metrics        MetricsConfig           `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	Plaintext      bool   `mapstructure:"plaintext"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AssistantConfig configures the hosted assistant the recommendation flow talks to.
type AssistantConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	AssistantID    string `mapstructure:"assistant_id"`
	BetaHeader     string `mapstructure:"beta_header"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	PollInterval   int    `mapstructure:"poll_interval"`   // milliseconds
	MaxPolls       int    `mapstructure:"max_polls"`
}

// Validate reports missing credentials. Only callers that reach the network need it.
func (a AssistantConfig) Validate() error {
	if a.APIKey == "" {
		return errors.New("assistant.api_key is required (or set OPENAI_API_KEY)")
	}
	if a.AssistantID == "" {
		return errors.New("assistant.assistant_id is required (or set OPENAI_ASSISTANT_ID)")
	}
	return nil
}

type RecommendationConfig struct {
	DefaultName string         `mapstructure:"default_name"`
	InflightTTL int            `mapstructure:"inflight_ttl"` // milliseconds
	Fallback    FallbackConfig `mapstructure:"fallback"`
}

// FallbackConfig is the product returned when the assistant cannot produce one.
type FallbackConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	URL         string `mapstructure:"url"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// ValidateWorkerManager checks the settings the long-running worker process needs.
func (c *Config) ValidateWorkerManager() error {
	if c.Camunda.BrokerAddress == "" {
		return errors.New("camunda.broker_address is required")
	}
	if c.Redis.Address == "" {
		return errors.New("redis.address is required (or set REDIS_ADDRESS)")
	}
	if err := c.Assistant.Validate(); err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	return nil
}
