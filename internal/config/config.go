package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Queue     QueueConfig     `mapstructure:"queue" validate:"required"`
	Retention RetentionConfig `mapstructure:"retention" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Stats     StatsConfig     `mapstructure:"stats"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// QueueConfig controls admission and execution of background tasks.
type QueueConfig struct {
	// MaxConcurrentJobs is the number of execution slots, fixed at startup
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs" validate:"required,gt=0,lte=1024"`

	// MaxBacklog caps queued tasks; 0 leaves the backlog unbounded
	MaxBacklog int `mapstructure:"max_backlog" validate:"gte=0"`

	// StrictTaskTypes rejects unknown task types at submission time
	StrictTaskTypes bool `mapstructure:"strict_task_types"`
}

// RetentionConfig bounds how long finished task records stay queryable.
type RetentionConfig struct {
	ResultTTL        time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
	ResultCapacity   int           `mapstructure:"result_capacity" validate:"gt=0"`
	ProgressTTL      time.Duration `mapstructure:"progress_ttl" validate:"gt=0"`
	ProgressCapacity int           `mapstructure:"progress_capacity" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
// An empty GeminiAPIKey disables the AI-backed task types.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name" validate:"required_with=GeminiAPIKey"`
	EmbeddingModel    string `mapstructure:"embedding_model" validate:"required_with=GeminiAPIKey"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// StatsConfig controls the periodic queue statistics report.
type StatsConfig struct {
	// ReportSchedule is a cron spec; empty disables the report
	ReportSchedule string `mapstructure:"report_schedule"`
}
