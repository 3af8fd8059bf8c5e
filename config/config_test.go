package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/polyledger/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Fetch.Limit)
	assert.Equal(t, 20, cfg.Fetch.Workers)
	assert.Equal(t, 250, cfg.Fetch.RecordsPerWorker)
	assert.Equal(t, 100, cfg.Join.BatchSize)
	assert.Equal(t, "match_start_price", cfg.CLV.ClosingColumn)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 150*time.Millisecond, cfg.Sleep())
	assert.Equal(t, 2*time.Second, cfg.RateLimitBase())
	assert.Equal(t, time.Minute, cfg.RateLimitMax())
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "https://data-api.polymarket.com", cfg.API.DataBase)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
wallet: "0xabc"
fetch:
  workers: 4
  records_per_worker: 100
  sleep_ms: 50
join:
  batch_size: 25
clv:
  closing_column: "close"
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0xabc", cfg.Wallet)
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.Equal(t, 100, cfg.Fetch.RecordsPerWorker)
	assert.Equal(t, 50*time.Millisecond, cfg.Sleep())
	assert.Equal(t, 25, cfg.Join.BatchSize)
	assert.Equal(t, "close", cfg.CLV.ClosingColumn)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("POLYLEDGER_WALLET", "0xdef")
	path := writeConfig(t, "wallet: \"0xabc\"\nlog:\n  level: debug\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "0xdef", cfg.Wallet)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative workers", "fetch:\n  workers: -1\n"},
		{"negative records per worker", "fetch:\n  records_per_worker: -5\n"},
		{"negative batch size", "join:\n  batch_size: -1\n"},
		{"bad yaml", "fetch: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
