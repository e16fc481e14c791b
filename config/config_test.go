package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_CONFIG_KEY", "value")
	assert.Equal(t, "value", getEnv("TEST_CONFIG_KEY", "default"))
	assert.Equal(t, "default", getEnv("TEST_CONFIG_MISSING", "default"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_CONFIG_INT", "42")
	assert.Equal(t, 42, getEnvInt("TEST_CONFIG_INT", 7))

	t.Setenv("TEST_CONFIG_BAD_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("TEST_CONFIG_BAD_INT", 7))

	assert.Equal(t, 7, getEnvInt("TEST_CONFIG_INT_MISSING", 7))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://pro-api.coinmarketcap.com", cfg.CMCBaseURL)
	assert.Equal(t, "data/current_tickers.txt", cfg.TickerFile)
	assert.Equal(t, "reports", cfg.ReportDir)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, time.Hour, cfg.QuoteCacheTTL)
	assert.Equal(t, 60, cfg.SyncIntervalMins)
	assert.Equal(t, 100, cfg.QuoteBatchSize)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("QUOTE_CACHE_TTL_SECONDS", "120")
	t.Setenv("SYNC_INTERVAL_MINUTES", "5")
	t.Setenv("CMC_API_KEY", "abc123")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.QuoteCacheTTL)
	assert.Equal(t, 5, cfg.SyncIntervalMins)
	assert.Equal(t, "abc123", cfg.CMCAPIKey)
}

func TestMaskHost(t *testing.T) {
	assert.Equal(t, "***", maskHost("db"))
	assert.Equal(t, "loc***", maskHost("localhost"))
	masked := maskHost("db.internal.example.com")
	assert.Contains(t, masked, "***")
	assert.NotEqual(t, "db.internal.example.com", masked)
}
