package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults for the recommendation flow.
const (
	DefaultAssistantBaseURL   = "https://api.openai.com/v1"
	DefaultAssistantBeta      = "assistants=v2"
	DefaultPollIntervalMillis = 1000
	DefaultMaxPolls           = 60
	DefaultInflightTTLMillis  = 5 * 60 * 1000

	DefaultFallbackName        = "Valley Medicinals Full Spectrum CBD Oil"
	DefaultFallbackDescription = "We encountered an issue generating your personalized recommendation. Please try again or contact us for personalized assistance."
	DefaultFallbackURL         = "https://example.com/product/full-spectrum-cbd-oil"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and
// applies environment overrides and defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// overrideEmptyConfig fills credentials from their conventional variable names.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Assistant.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.Assistant.AssistantID, "OPENAI_ASSISTANT_ID")
	setIfEmpty(&cfg.Redis.Address, "REDIS_ADDRESS")
	setIfEmpty(&cfg.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Camunda.BrokerAddress, "ZEEBE_ADDRESS")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "vm-pathways"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Assistant.BaseURL == "" {
		cfg.Assistant.BaseURL = DefaultAssistantBaseURL
	}
	if cfg.Assistant.BetaHeader == "" {
		cfg.Assistant.BetaHeader = DefaultAssistantBeta
	}
	if cfg.Assistant.RequestTimeout == 0 {
		cfg.Assistant.RequestTimeout = 30000
	}
	if cfg.Assistant.PollInterval == 0 {
		cfg.Assistant.PollInterval = DefaultPollIntervalMillis
	}
	if cfg.Assistant.MaxPolls == 0 {
		cfg.Assistant.MaxPolls = DefaultMaxPolls
	}

	if cfg.Recommendation.InflightTTL == 0 {
		cfg.Recommendation.InflightTTL = DefaultInflightTTLMillis
	}
	if cfg.Recommendation.Fallback.Name == "" {
		cfg.Recommendation.Fallback.Name = DefaultFallbackName
	}
	if cfg.Recommendation.Fallback.Description == "" {
		cfg.Recommendation.Fallback.Description = DefaultFallbackDescription
	}
	if cfg.Recommendation.Fallback.URL == "" {
		cfg.Recommendation.Fallback.URL = DefaultFallbackURL
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig rejects values no component can run with.
func validateConfig(cfg *Config) error {
	if cfg.Assistant.PollInterval < 0 {
		return errors.New("assistant.poll_interval must not be negative")
	}
	if cfg.Assistant.MaxPolls < 0 {
		return errors.New("assistant.max_polls must not be negative")
	}
	if cfg.Recommendation.InflightTTL < 0 {
		return errors.New("recommendation.inflight_ttl must not be negative")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns the named worker's settings, or defaults when absent.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled defaults to true for workers missing from the config.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
