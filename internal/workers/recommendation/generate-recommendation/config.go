package generaterecommendation

import (
	"fmt"
	"time"
)

// WorkerName is the key of this worker in the workers config section.
const WorkerName = "generate-recommendation"

const DefaultInflightPrefix = "recommendation:inflight:"

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	InflightTTL    time.Duration `mapstructure:"inflight_ttl"`
	InflightPrefix string        `mapstructure:"inflight_prefix"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        90 * time.Second,
		InflightTTL:    5 * time.Minute,
		InflightPrefix: DefaultInflightPrefix,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.InflightTTL < c.Timeout {
		return fmt.Errorf("inflight_ttl (%s) must not be shorter than timeout (%s)", c.InflightTTL, c.Timeout)
	}
	if c.InflightPrefix == "" {
		return fmt.Errorf("inflight_prefix is required")
	}
	return nil
}
