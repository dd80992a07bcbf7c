package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validTestConfig() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Server:      ServerConfig{Port: 8080},
		Backtest:    DefaultBacktestConfig(),
	}
}

func TestValidateConfig_DevelopmentAllowsEmptySecret(t *testing.T) {
	cfg := validTestConfig()

	assert.NoError(t, validateConfig(cfg))
}

func TestValidateConfig_ProductionRequiresJWTSecret(t *testing.T) {
	cfg := validTestConfig()
	cfg.Environment = "production"

	err := validateConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.Auth.JWTSecret = "short"
	err = validateConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")

	cfg.Auth.JWTSecret = "a-proper-secret-key-with-32-chars-x"
	assert.NoError(t, validateConfig(cfg))
}

func TestValidateConfig_TelegramNeedsToken(t *testing.T) {
	cfg := validTestConfig()
	cfg.Telegram.Enabled = true

	err := validateConfig(cfg)
	assert.Error(t, err)

	cfg.Telegram.BotToken = "123456:token"
	assert.NoError(t, validateConfig(cfg))
}

func TestValidateConfig_FractionBounds(t *testing.T) {
	cfg := validTestConfig()
	cfg.Backtest.BreakerLead3dFraction = 1.5

	err := validateConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "breaker_lead_3d_fraction")

	cfg.Backtest.BreakerLead3dFraction = -0.1
	assert.Error(t, validateConfig(cfg))

	cfg.Backtest.BreakerLead3dFraction = 0.66
	assert.NoError(t, validateConfig(cfg))
}

func TestDefaultBacktestConfig(t *testing.T) {
	cfg := DefaultBacktestConfig()

	assert.Equal(t, 0.66, cfg.BreakerLead3dFraction)
	assert.Equal(t, 0.50, cfg.BreakerLead1dFraction)
	assert.Equal(t, 0.25, cfg.BreakerSameDayFraction)
	assert.Equal(t, 0.40, cfg.AlertLead3dFraction)
	assert.Equal(t, 0.25, cfg.AlertLead1dFraction)
	assert.Equal(t, 10, cfg.FalsePositiveWindowDays)
}

func TestRedisConfigAddr(t *testing.T) {
	r := RedisConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", r.Addr())
}
