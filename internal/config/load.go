package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load
const EnvPrefix = "JOBS"

// configKeys lists every key so environment variables are honored even
// when no config file defines them
var configKeys = []string{
	"server.port",
	"server.log_level",
	"queue.max_concurrent_jobs",
	"queue.max_backlog",
	"queue.strict_task_types",
	"retention.result_ttl",
	"retention.result_capacity",
	"retention.progress_ttl",
	"retention.progress_capacity",
	"llm.gemini_api_key",
	"llm.model_name",
	"llm.embedding_model",
	"llm.max_retries",
	"llm.retry_delay_seconds",
	"stats.report_schedule",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("queue.max_concurrent_jobs", 4)
	v.SetDefault("queue.max_backlog", 0)
	v.SetDefault("queue.strict_task_types", false)
	v.SetDefault("retention.result_ttl", "1h")
	v.SetDefault("retention.result_capacity", 10000)
	v.SetDefault("retention.progress_ttl", "1h")
	v.SetDefault("retention.progress_capacity", 10000)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.embedding_model", "text-embedding-004")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("stats.report_schedule", "@every 1m")
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
