package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Mail     MailConfig
	SMS      SMSConfig
	Outbox   OutboxConfig
	Gemini   GeminiConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// RedisConfig holds the Redis connection used for rate limiting and
// single-use reset tokens.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

// OTPConfig controls one-time code lifetime and issuance rate.
type OTPConfig struct {
	TTL             time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
}

// MailConfig holds SMTP credentials for outbound email.
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMSConfig holds the HTTP SMS gateway settings. An empty APIKey disables SMS.
type SMSConfig struct {
	APIURL     string
	APIKey     string
	SenderName string
}

// OutboxConfig controls the notification dispatcher.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// GeminiConfig holds the generative-AI endpoint used by the chatbot.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Models  []string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "labang_online")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RESET_TOKEN_TTL", "10m")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("RATE_LIMIT_OTP", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "1h")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_FROM", "Labang Online <no-reply@labang.online>")
	v.SetDefault("SMS_API_URL", "https://api.semaphore.co/api/v4")
	v.SetDefault("SMS_SENDER_NAME", "LABANGON")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "5s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 20)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 5)
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GEMINI_MODELS", "gemini-2.0-flash,gemini-1.5-flash,gemini-1.5-pro")
	v.SetDefault("GEMINI_TIMEOUT", "15s")

	// Bind environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		CORS: CORSConfig{
			Origins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			TokenTTL:      v.GetDuration("JWT_TTL"),
			ResetTokenTTL: v.GetDuration("RESET_TOKEN_TTL"),
		},
		OTP: OTPConfig{
			TTL:             v.GetDuration("OTP_TTL"),
			RateLimit:       v.GetInt("RATE_LIMIT_OTP"),
			RateLimitWindow: v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		SMS: SMSConfig{
			APIURL:     v.GetString("SMS_API_URL"),
			APIKey:     v.GetString("SMS_API_KEY"),
			SenderName: v.GetString("SMS_SENDER_NAME"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
			BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts:  v.GetInt("OUTBOX_MAX_ATTEMPTS"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("GEMINI_API_KEY"),
			BaseURL: v.GetString("GEMINI_BASE_URL"),
			Models:  splitList(v.GetString("GEMINI_MODELS")),
			Timeout: v.GetDuration("GEMINI_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate auth config
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive")
	}

	if c.OTP.TTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.OTP.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT_OTP must be at least 1")
	}
	if c.OTP.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}

	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1")
	}
	if c.Outbox.MaxAttempts < 1 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be at least 1")
	}

	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// splitList splits a comma-separated string into a slice of trimmed values.
func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
