package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, "secret: 0123456789abcdef\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 60*time.Second, cfg.PongWait())
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, "drop", cfg.SlowConsumer)
	assert.Empty(t, cfg.OpsToken)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Presence.WriteTimeout)
	assert.True(t, cfg.Presence.PurgeOnStart)
	assert.Equal(t, 60, cfg.RateLimit.Events)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
mode: debug
port: 9000
slow_consumer: kick
rate_limit:
  events: 5
  interval: 2s
ice_servers:
  - urls: ["turn:turn.example.com:3478"]
    username: u
    credential: p
`)
	t.Setenv("VOXIFY_PORT", "9100")
	t.Setenv("VOXIFY_OPS_TOKEN", "from-env")
	t.Setenv("DATABASE_URL", "postgres://voxify:pw@db:5432/voxify")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "kick", cfg.SlowConsumer)
	assert.Equal(t, "from-env", cfg.OpsToken)
	assert.Equal(t, 5, cfg.RateLimit.Events)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Interval)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgresql://voxify:pw@db:5432/voxify", cfg.Database.DSN)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, "u", cfg.ICEServers[0].Username)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("VOXIFY_MODE", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "mode: release\nslow_consumer: explode\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "slow_consumer")
}
