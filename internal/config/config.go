package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/lichen/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// Data
	DataDir string

	// Fingerprinting
	FingerprintWidth    int
	MaxSequencesPerFile int
	LanguagesFile       string

	// Concurrency
	WorkerCount       int
	MaxConcurrentRuns int
	RunTimeout        time.Duration

	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// JWT
	JWTSecret string

	// Rate Limiting
	RateLimitRPS float64

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	ServerPort  string
	MetricsPort string
	APIDebug    bool
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Data
	cfg.DataDir = env.GetEnv("LICHEN_DATA_DIR", "")

	// Fingerprinting
	cfg.FingerprintWidth = env.GetEnvInt("FINGERPRINT_WIDTH", DefaultFingerprintWidth)
	cfg.MaxSequencesPerFile = env.GetEnvInt("MAX_SEQUENCES_PER_FILE", DefaultMaxSequencesPerFile)
	cfg.LanguagesFile = env.GetEnv("LANGUAGES_FILE", "")

	// Concurrency
	cfg.WorkerCount = env.GetEnvInt("WORKER_COUNT", 0)
	cfg.MaxConcurrentRuns = env.GetEnvInt("MAX_CONCURRENT_RUNS", 2)
	cfg.RunTimeout = env.GetEnvDuration("RUN_TIMEOUT_MINUTES", 30, time.Minute)

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "lichen")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "lichen:runs")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "lichen:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "lichen:dlq")
	cfg.StreamRetentionDuration = env.GetEnvDuration("STREAM_RETENTION_DURATION", 24, time.Hour)

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 5.0)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogFormat = env.GetEnv("LOG_FORMAT", "json")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")
	cfg.APIDebug = env.GetEnvBool("API_DEBUG", false)

	return cfg, nil
}

// Validate checks the settings every mode needs
func (c *Config) Validate() error {
	if c.FingerprintWidth < 1 || c.FingerprintWidth > MaxFingerprintWidth {
		return fmt.Errorf("FINGERPRINT_WIDTH must be between 1 and %d", MaxFingerprintWidth)
	}
	if c.MaxSequencesPerFile < 0 {
		return fmt.Errorf("MAX_SEQUENCES_PER_FILE must not be negative")
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must not be negative")
	}
	return nil
}

// ValidateServer checks the extra settings needed by the HTTP/stream service
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("LICHEN_DATA_DIR is required")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be greater than 0")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT_MINUTES must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	return nil
}
