package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlab/internal/config"
)

// writeConfig 写出测试配置；withCatalog 为 false 时显式关闭交易对目录。
func writeConfig(t *testing.T, withCatalog bool, extra string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath := `""`
	if withCatalog {
		catalogPath = filepath.Join(dir, "catalog.db")
	}
	presets := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(presets, []byte("presets:\n  swing:\n    fast_len: 10\n    slow_len: 30\n    kind: sma\n"), 0o644))
	body := fmt.Sprintf(`app:
  http_addr: 127.0.0.1:0
  log_level: error
market:
  store_dir: %s
  catalog_path: %s
%s
backtest:
  presets_path: %s
`, filepath.Join(dir, "candles"), catalogPath, extra, presets)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNewAppWiresServer(t *testing.T) {
	cfg := writeConfig(t, true, "")
	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	h := a.Server().Handler()
	for _, path := range []string{"/healthz", "/api/presets", "/api/meta", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	assert.Contains(t, rec.Body.String(), `"swing"`)

	summary := a.Summary.String()
	assert.Contains(t, summary, "binance, bitget, eastmoney, gate")
	assert.Contains(t, summary, "swing")
	assert.Contains(t, summary, "memory ttl=30s")
	assert.Contains(t, summary, "熔断: 连续失败 5 次")

	a.Close()
	a.Close()
}

func TestNewAppWithoutMetricsOrCatalog(t *testing.T) {
	cfg := writeConfig(t, false, "  cache_ttl_seconds: 0")
	cfg.App.MetricsEnabled = false
	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	h := a.Server().Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/symbols", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, a.Summary.String(), "缓存: 关闭")
}

func TestNewAppRejectsBadPresets(t *testing.T) {
	cfg := writeConfig(t, true, "")
	require.NoError(t, os.WriteFile(cfg.Backtest.PresetsPath, []byte("presets:\n  bad:\n    fast_len: 30\n    slow_len: 10\n"), 0o644))
	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := writeConfig(t, false, "")
	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewAppNilConfig(t *testing.T) {
	_, err := NewApp(context.Background(), nil)
	assert.Error(t, err)
}
