package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultFeedSources, cfg.Feed.Sources)
	assert.Equal(t, 5*time.Minute, cfg.Feed.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.Feed.Timeout())
	assert.InDelta(t, 0.07, cfg.Feed.MinorCurrencyRate, 0.0001)
	assert.Equal(t, 500, cfg.Feed.DescriptionLimit)
	assert.Equal(t, "Standard", cfg.Feed.DefaultTrim)
	assert.Equal(t, 10, cfg.Catalog.PageSize)
	assert.Equal(t, time.Hour, cfg.Rates.TTL())
	assert.Equal(t, "USD", cfg.Rates.Currency)
	assert.Equal(t, "/api/webapp/contact", cfg.Relay.Path)
	assert.Equal(t, 5, cfg.Relay.FailureThreshold)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Translate.Enabled)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 3, cfg.Monitoring.FailureStreak)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 1e-9)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
feed:
  sources:
    - https://mirror.example.com/cars.csv
  cache_ttl_secs: 60
catalog:
  page_size: 20
store:
  driver: none
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://mirror.example.com/cars.csv"}, cfg.Feed.Sources)
	assert.Equal(t, time.Minute, cfg.Feed.CacheTTL())
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CARLOT_SERVER_PORT", "3000")
	t.Setenv("CARLOT_RELAY_BASE_URL", "http://relay.local")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "http://relay.local", cfg.Relay.BaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CARLOT_TELEGRAM_BOT_TOKEN=123:abc\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CARLOT_TELEGRAM_BOT_TOKEN") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CARLOT_STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Feed.Sources = []string{"https://example.com/a.csv"}
	cfg.Catalog.PageSize = 10
	cfg.Store.Driver = "postgres"
	assert.NoError(t, cfg.Validate())

	cfg.Catalog.PageSize = 0
	assert.Error(t, cfg.Validate())

	cfg.Catalog.PageSize = 10
	cfg.Feed.Sources = nil
	assert.Error(t, cfg.Validate())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
