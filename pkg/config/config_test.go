package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 24*time.Hour, cfg.Messaging.GrantTTL)
	assert.Equal(t, 30*time.Second, cfg.Reconciler.FetchTimeout)
	assert.Equal(t, 4*time.Second, cfg.Reconciler.FlushInterval)
	assert.Equal(t, 10, cfg.Reconciler.Groupings.Channel)
	assert.Equal(t, 5, cfg.Reconciler.Groupings.Group)
	assert.Equal(t, 1, cfg.Reconciler.Groupings.MultiParty)
	assert.Equal(t, 0, cfg.Reconciler.Groupings.Direct)
	assert.Equal(t, "", cfg.Queue.Service)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"zero grant ttl", func(c *Config) { c.Messaging.GrantTTL = 0 }},
		{"unknown queue service", func(c *Config) { c.Queue.Service = "kafka" }},
		{"rabbitmq without url", func(c *Config) { c.Queue.Service = "rabbitmq"; c.Queue.RabbitMQ.URL = "" }},
		{"zero fetch timeout", func(c *Config) { c.Reconciler.FetchTimeout = 0 }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"rate limiting without rps", func(c *Config) { c.RateLimiting.RequestsPerSecond = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9999"
messaging:
  grant_ttl: 1h
queue:
  service: "rabbitmq"
  rabbitmq:
    url: "amqp://localhost:5672/"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, time.Hour, cfg.Messaging.GrantTTL)
	assert.Equal(t, "rabbitmq", cfg.Queue.Service)
	// untouched sections keep their defaults
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEAMSTREAM_REDIS_ADDRESS", "redis.internal:6379")
	t.Setenv("TEAMSTREAM_JWT_SECRET", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}
