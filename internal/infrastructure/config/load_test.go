package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
  read_timeout: 15s

postgresql:
  host: db.internal
  port: 5432
  user: app
  password: secret
  database: candles
  sslmode: disable

redis:
  host: cache.internal
  port: 6380

feed:
  ws_url: wss://stream.binance.com:9443/ws
  reconnect_delay: 2s

buffer:
  backend: redis
  retention: 500

symbols:
  - btcusdt
  - ethusdt

aggregation:
  interval: 30s

logging:
  level: debug
  format: json
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	// Unset durations fall back to defaults.
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, 2*time.Second, cfg.Feed.ReconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.Aggregation.Interval)

	assert.Equal(t, "redis", cfg.Buffer.Backend)
	assert.Equal(t, 500, cfg.Buffer.Retention)
	assert.Equal(t, []string{"btcusdt", "ethusdt"}, cfg.Symbols)

	assert.Equal(t,
		"host=db.internal port=5432 user=app password=secret dbname=candles sslmode=disable",
		cfg.PostgresDSN())
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "pg.override")
	t.Setenv("SERVER_PORT", "8085")
	t.Setenv("FEED_WS_URL", "ws://localhost:9000/ws")
	t.Setenv("TRADING_SYMBOLS", "SOLUSDT, ADAUSDT")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "pg.override", cfg.PostgreSQL.Host)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "ws://localhost:9000/ws", cfg.Feed.WSURL)
	assert.Equal(t, []string{"solusdt", "adausdt"}, cfg.Symbols)
}

func TestLoadLowercasesSymbols(t *testing.T) {
	cfg, err := Load(writeConfig(t, "symbols:\n  - BTCUSDT\n  - EthUsdt\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"btcusdt", "ethusdt"}, cfg.Symbols)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "aggregation:\n  interval: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
