package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates all configuration settings for the risk engine.
type Config struct {
	// Environment indicates the running environment (e.g., "development", "production").
	Environment string `mapstructure:"environment"`
	// LogLevel sets the global logging verbosity.
	LogLevel string `mapstructure:"log_level"`
	// Server holds configuration for the HTTP server.
	Server ServerConfig `mapstructure:"server"`
	// Redis holds configuration for the latest-assessment cache.
	Redis RedisConfig `mapstructure:"redis"`
	// Sentry holds configuration for Sentry error tracking.
	Sentry SentryConfig `mapstructure:"sentry"`
	// Telegram holds configuration for alert notifications.
	Telegram TelegramConfig `mapstructure:"telegram"`
	// Auth holds configuration for authentication.
	Auth AuthConfig `mapstructure:"auth"`
	// Risk holds tunables for the scoring pipeline.
	Risk RiskConfig `mapstructure:"risk"`
	// Backtest holds the loss-prevention policy parameters.
	Backtest BacktestConfig `mapstructure:"backtest"`
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`
	// AllowedOrigins is a list of CORS allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig defines the Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SentryConfig defines settings for Sentry error reporting.
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// TelegramConfig defines settings for the alert notification bot.
type TelegramConfig struct {
	// Enabled controls whether alert notifications are sent at all.
	Enabled bool `mapstructure:"enabled"`
	// BotToken is the authentication token for the Telegram bot.
	BotToken string `mapstructure:"bot_token"`
	// ChatID is the chat that receives WARNING/CRITICAL alerts.
	ChatID int64 `mapstructure:"chat_id"`
}

// AuthConfig defines settings for authentication.
type AuthConfig struct {
	// JWTSecret signs and verifies bearer tokens for admin endpoints.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RiskConfig defines tunables for the scoring pipeline. Severity
// thresholds are deliberately NOT here: the 40/60/80 vocabulary is fixed
// in the models package so it cannot drift per deployment.
type RiskConfig struct {
	// CacheTTL bounds how long a published assessment stays fresh.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// BreakerRecoveryEvaluations is how many consecutive sub-WARNING
	// scores close a tripped operations breaker again.
	BreakerRecoveryEvaluations int `mapstructure:"breaker_recovery_evaluations"`
	// AIModelName labels the external AI model in consensus breakdowns.
	AIModelName string `mapstructure:"ai_model_name"`
}

// BacktestConfig carries the loss-prevention policy parameters. These are
// illustrative constants pending stakeholder confirmation, which is exactly
// why they live in configuration rather than code.
type BacktestConfig struct {
	// BreakerLead3dFraction applies when the breaker fired >= 3 days early.
	BreakerLead3dFraction float64 `mapstructure:"breaker_lead_3d_fraction"`
	// BreakerLead1dFraction applies for a 1-2 day breaker lead.
	BreakerLead1dFraction float64 `mapstructure:"breaker_lead_1d_fraction"`
	// BreakerSameDayFraction applies when the breaker fired on the event day.
	BreakerSameDayFraction float64 `mapstructure:"breaker_same_day_fraction"`
	// AlertLead3dFraction applies when only an alert fired, >= 3 days early.
	AlertLead3dFraction float64 `mapstructure:"alert_lead_3d_fraction"`
	// AlertLead1dFraction applies when only an alert fired, >= 1 day early.
	AlertLead1dFraction float64 `mapstructure:"alert_lead_1d_fraction"`
	// FalsePositiveWindowDays: WARNING/CRITICAL days earlier than this
	// before the event count as false positives.
	FalsePositiveWindowDays int `mapstructure:"false_positive_window_days"`
}

// Load reads configuration from config.yaml, .env and the environment.
//
// Returns:
//
//	*Config: The populated configuration.
//	error: Error if reading or validation fails.
func Load() (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("sentry.dsn", "SENTRY_DSN")
	_ = viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Sentry.DSN != "" {
		config.Sentry.DSN = strings.TrimSpace(config.Sentry.DSN)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Sentry
	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", viper.GetString("environment"))
	viper.SetDefault("sentry.release", "")
	viper.SetDefault("sentry.traces_sample_rate", 0.2)

	// Telegram
	viper.SetDefault("telegram.enabled", false)
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	// Auth
	viper.SetDefault("auth.jwt_secret", "")

	// Risk
	viper.SetDefault("risk.cache_ttl", "5m")
	viper.SetDefault("risk.breaker_recovery_evaluations", 3)
	viper.SetDefault("risk.ai_model_name", "gpt-risk-analyst")

	// Backtest prevention policy
	viper.SetDefault("backtest.breaker_lead_3d_fraction", 0.66)
	viper.SetDefault("backtest.breaker_lead_1d_fraction", 0.50)
	viper.SetDefault("backtest.breaker_same_day_fraction", 0.25)
	viper.SetDefault("backtest.alert_lead_3d_fraction", 0.40)
	viper.SetDefault("backtest.alert_lead_1d_fraction", 0.25)
	viper.SetDefault("backtest.false_positive_window_days", 10)
}

// validateConfig validates critical security and operational settings.
func validateConfig(config *Config) error {
	if config.Environment == "production" || config.Environment == "staging" {
		if config.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET cannot be empty in %s environment", config.Environment)
		}
		if len(config.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long in %s environment", config.Environment)
		}
	}

	if config.Telegram.Enabled && config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram notifications enabled without a bot token")
	}

	for name, f := range map[string]float64{
		"backtest.breaker_lead_3d_fraction":  config.Backtest.BreakerLead3dFraction,
		"backtest.breaker_lead_1d_fraction":  config.Backtest.BreakerLead1dFraction,
		"backtest.breaker_same_day_fraction": config.Backtest.BreakerSameDayFraction,
		"backtest.alert_lead_3d_fraction":    config.Backtest.AlertLead3dFraction,
		"backtest.alert_lead_1d_fraction":    config.Backtest.AlertLead1dFraction,
	} {
		if f < 0 || f > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, f)
		}
	}

	return nil
}

// DefaultBacktestConfig returns the standing prevention policy, for use by
// callers that run the backtester outside the server wiring (tests, CLI).
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		BreakerLead3dFraction:   0.66,
		BreakerLead1dFraction:   0.50,
		BreakerSameDayFraction:  0.25,
		AlertLead3dFraction:     0.40,
		AlertLead1dFraction:     0.25,
		FalsePositiveWindowDays: 10,
	}
}
