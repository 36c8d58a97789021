package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 70*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 2, cfg.AI.MaxAttempts)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.AIEnabled())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  port: 8080
  staticDir: /srv/pages
ai:
  model: gpt-4o
  timeout: 20s
rateLimit:
  aiRequests: 5
tickets:
  redisAddr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/pages", cfg.Server.StaticDir)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 20*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 5, cfg.RateLimit.AIRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.AIWindow)
	assert.Equal(t, "localhost:6379", cfg.Tickets.RedisAddr)
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "server: [",
		"bad port":     "server:\n  port: 70000\n",
		"bad attempts": "ai:\n  maxAttempts: 9\n",
		"short write":  "server:\n  writeTimeout: 10s\n",
		"one stage":    "server:\n  writeTimeout: 45s\nai:\n  timeout: 30s\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestBadPortEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestAdviceBudget(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 65*time.Second, cfg.AdviceBudget())
	assert.GreaterOrEqual(t, cfg.AdviceBudget(), ModelStages*cfg.AI.Timeout)
	require.NoError(t, cfg.Validate())

	cfg.Server.WriteTimeout = 300 * time.Millisecond
	assert.Equal(t, 240*time.Millisecond, cfg.AdviceBudget())

	cfg.Server.WriteTimeout = 0
	assert.Equal(t, ModelStages*cfg.AI.Timeout, cfg.AdviceBudget())
}

func TestValidateRequiresRoomForBothStages(t *testing.T) {
	cfg := Default()
	cfg.Server.WriteTimeout = 62 * time.Second
	assert.ErrorContains(t, cfg.Validate(), "server.writeTimeout")

	cfg.Server.WriteTimeout = 66 * time.Second
	assert.NoError(t, cfg.Validate())
}
