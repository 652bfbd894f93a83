package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9991", cfg.App.HTTPAddr)
	assert.Equal(t, "binance", cfg.Market.DefaultSource)
	assert.Equal(t, 200, cfg.Market.MaxBars)
	assert.Equal(t, 6.0, cfg.Backtest.FeeBps)
	assert.Equal(t, 5.0, cfg.Backtest.SlippageBps)
	assert.Equal(t, 12, cfg.Backtest.FastLen)
	assert.Equal(t, 26, cfg.Backtest.SlowLen)
	assert.Equal(t, "ema", cfg.Backtest.MAKind)
	assert.Equal(t, 2, cfg.Export.PricePrecision)
	assert.Equal(t, 6, cfg.Export.EquityPrecision)
	assert.True(t, cfg.App.MetricsEnabled)
	assert.Equal(t, "memory", cfg.Market.CacheBackend)
	assert.Equal(t, "chartlab:candles:", cfg.Market.RedisPrefix)
	assert.Equal(t, "data/catalog.db", cfg.Market.CatalogPath)
	assert.Equal(t, 360, cfg.Market.CatalogTTLMinutes)
	assert.Equal(t, 5, cfg.Market.BreakerThreshold)
	assert.Equal(t, 60, cfg.Market.BreakerCooldownSeconds)
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "app:\n  metrics_enabled: false\nmarket:\n  cache_backend: Redis\n  redis_addr: cache:6379\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.App.MetricsEnabled)
	assert.Equal(t, "redis", cfg.Market.CacheBackend)
	assert.Equal(t, "cache:6379", cfg.Market.RedisAddr)
}

func TestLoadKeepsExplicitZero(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "backtest:\n  fee_bps: 0\n  slippage_bps: 0\nexport:\n  price_precision: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Backtest.FeeBps)
	assert.Equal(t, 0.0, cfg.Backtest.SlippageBps)
	assert.Equal(t, 0, cfg.Export.PricePrecision)
	assert.Equal(t, 6, cfg.Export.EquityPrecision)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "market.yaml", "market:\n  default_source: bitget\n  max_bars: 100\n")
	path := writeFile(t, dir, "config.yaml", "include:\n  - market.yaml\nmarket:\n  max_bars: 150\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bitget", cfg.Market.DefaultSource)
	assert.Equal(t, 150, cfg.Market.MaxBars)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"source":   "market:\n  default_source: kraken\n",
		"fee":      "backtest:\n  fee_bps: -1\n",
		"kind":     "backtest:\n  ma_kind: wma\n",
		"level":    "app:\n  log_level: loud\n",
		"export":   "export:\n  equity_precision: -2\n",
		"maxbars":  "market:\n  max_bars: 0\n",
		"backend":  "market:\n  cache_backend: memcached\n",
		"redis":    "market:\n  cache_backend: redis\n  redis_addr: \"\"\n",
		"breaker":  "market:\n  breaker_threshold: -1\n",
		"telegram": "notify:\n  telegram_token: abc\n  telegram_chat_id: 5\n  telegram_api: https://example.invalid/bot\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestNotifyTokenFromEnv(t *testing.T) {
	t.Setenv(EnvTelegramToken, " env-token ")
	path := writeFile(t, t.TempDir(), "config.yaml", "notify:\n  telegram_chat_id: 42\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Notify.TelegramToken)
	assert.True(t, cfg.Notify.TelegramEnabled())
	assert.Equal(t, "https://api.telegram.org/bot%s/%s", cfg.Notify.TelegramAPI)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CHARTLAB_HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("CHARTLAB_CACHE_BACKEND", "Redis")
	t.Setenv("CHARTLAB_REDIS_ADDR", "redis:6379")
	path := writeFile(t, t.TempDir(), "config.yaml", "app:\n  http_addr: \":9991\"\nmarket:\n  cache_backend: memory\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.App.HTTPAddr)
	assert.Equal(t, "redis", cfg.Market.CacheBackend)
	assert.Equal(t, "redis:6379", cfg.Market.RedisAddr)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, "configs/config.yaml", PathFromEnv())
	t.Setenv(EnvConfigPath, "/etc/chartlab.yaml")
	assert.Equal(t, "/etc/chartlab.yaml", PathFromEnv())
}
