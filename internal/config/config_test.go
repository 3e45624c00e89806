package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"AUTH_JWT_SECRET",
	"AUTH_TOKEN_TTL_MINUTES",
	"AUTH_COOKIE_NAME",
	"AUTH_SEED_USERNAME",
	"AUTH_SEED_PASSWORD",
	"AUTH_SEED_ROLE",
	"PRESENCE_RATE_PER_SECOND",
	"PRESENCE_RATE_BURST",
	"POSTGRES_DSN",
	"PRESENCE_BACKEND",
	"PRESENCE_STALENESS_WINDOW",
	"PRESENCE_SWEEP_INTERVAL",
	"REDIS_DB",
	"HEARTBEAT_SERVER_URL",
	"HEARTBEAT_TOKEN",
	"HEARTBEAT_INTERVAL",
	"HEARTBEAT_REQUEST_TIMEOUT",
}

// isolateConfigEnv unsets every key Load reads so host values do not leak in.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSigningSecret))
	assert.Nil(t, cfg)
}

func TestLoad_WhitespaceSecretIsMissing(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "   ")

	_, err := Load()

	assert.ErrorIs(t, err, ErrMissingSigningSecret)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, PresenceBackendRedis, cfg.Presence.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Presence.StalenessWindow)
	assert.Equal(t, time.Minute, cfg.Presence.SweepInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Empty(t, cfg.Auth.SeedUsername)
	assert.Equal(t, "admin", cfg.Auth.SeedRole)
}

func TestLoad_PresenceOverrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("PRESENCE_BACKEND", "MEMORY")
	t.Setenv("PRESENCE_STALENESS_WINDOW", "90s")
	t.Setenv("PRESENCE_SWEEP_INTERVAL", "15s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, PresenceBackendMemory, cfg.Presence.Backend)
	assert.Equal(t, 90*time.Second, cfg.Presence.StalenessWindow)
	assert.Equal(t, 15*time.Second, cfg.Presence.SweepInterval)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad window", key: "PRESENCE_STALENESS_WINDOW", val: "soon"},
		{name: "negative sweep", key: "PRESENCE_SWEEP_INTERVAL", val: "-1m"},
		{name: "unknown backend", key: "PRESENCE_BACKEND", val: "etcd"},
		{name: "postgres without dsn", key: "PRESENCE_BACKEND", val: "postgres"},
		{name: "bad redis db", key: "REDIS_DB", val: "zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("AUTH_JWT_SECRET", "s3cret")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadClient()

	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoadClient_TrimsTrailingSlash(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HEARTBEAT_SERVER_URL", "https://toko.example.com/")
	t.Setenv("HEARTBEAT_INTERVAL", "10s")

	cfg, err := LoadClient()

	require.NoError(t, err)
	assert.Equal(t, "https://toko.example.com", cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.Interval)
}
