package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "unit-test-secret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 7*24*time.Hour, cfg.HeldOrderRetention)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.False(t, cfg.ERPEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("ERP_ENABLED", "true")
	t.Setenv("ERP_BASE_URL", "https://erp.example.com/api")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")

	cfg := Load()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.True(t, cfg.ERPEnabled)
	assert.Equal(t, "https://erp.example.com/api", cfg.ERPBaseURL)
	assert.Equal(t, 12, cfg.LowStockThreshold)
}

func TestLoadIgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "soon")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
}
