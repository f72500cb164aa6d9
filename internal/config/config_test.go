package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 8080
  max_connections: 5000
  allowed_origins:
    - "https://stones.example.com"

redis:
  addr: "redis:6379"
  password: "secret"
  db: 1

ledger:
  driver: sqlite
  sqlite_path: /var/lib/stones/ledger.db
  retry_attempts: 5
  retry_backoff_ms: 50

game:
  min_stake: 100
  max_stake: 50000
  min_players: 2
  max_players_limit: 6
  default_max_players: 4
  auto_start_when_full: true
  special_multiplier: 3
  super_multiplier: 4
  commission_bps: 250
  settle_retry_interval: 2
  record_stats: true

log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5000, cfg.Server.MaxConnections)
	assert.Equal(t, []string{"https://stones.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, 50*time.Millisecond, cfg.Ledger.RetryBackoff())
	assert.Equal(t, int64(100), cfg.Game.MinStake)
	assert.Equal(t, 4, cfg.Game.DefaultMaxPlayers)
	assert.True(t, cfg.Game.AutoStartWhenFull)
	assert.Equal(t, int64(3), cfg.Game.SpecialMultiplier)
	assert.Equal(t, int64(250), cfg.Game.Commission())
	assert.Equal(t, 2*time.Second, cfg.Game.SettleRetryIntervalDuration())
	assert.True(t, cfg.Game.RecordStats)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset values fall back to defaults
	assert.Equal(t, "X-User-ID", cfg.Server.UserIDHeader)
	assert.Equal(t, 10*time.Minute, cfg.Game.RoomTimeoutDuration())
	assert.Equal(t, 20, cfg.Security.MessageLimit.MaxPerSecond)
}

func TestLoad_ZeroCommission(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "game:\n  commission_bps: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Game.Commission())

	// omitted keeps the default
	cfg, err = Load(writeConfig(t, "game:\n  min_stake: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), cfg.Game.Commission())
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_RejectsInconsistentBounds(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"stake":      "game:\n  min_stake: 500\n  max_stake: 100\n",
		"players":    "game:\n  min_players: 5\n  max_players_limit: 3\n",
		"commission": "game:\n  commission_bps: 10000\n",
		"driver":     "ledger:\n  driver: postgres\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 1790, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Ledger.Driver)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2, cfg.Game.MinPlayers)
	assert.Equal(t, 10, cfg.Game.MaxPlayersLimit)
	assert.Equal(t, int64(2), cfg.Game.SpecialMultiplier)
	assert.Equal(t, int64(3), cfg.Game.SuperMultiplier)
	assert.Equal(t, int64(500), cfg.Game.Commission())
	assert.Equal(t, 10*time.Second, cfg.Security.ChatLimit.CooldownDuration())
	assert.Equal(t, time.Minute, cfg.Security.RateLimit.BanDurationTime())
	assert.Empty(t, cfg.Security.IPBlacklist)
}
