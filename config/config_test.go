package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"SUPABASE_URL":      "https://project.supabase.co/",
		"SUPABASE_ANON_KEY": "anon",
		"SESSION_SECRET":    "0123456789abcdef0123456789abcdef",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(baseEnv()))

	require.NoError(t, err)
	assert.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.ClientIdleTimeout)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.StorageEnabled())
	assert.Empty(t, cfg.DatabaseURL)
}

func TestFromEnv_MissingRequiredAreAllReported(t *testing.T) {
	_, err := FromEnv(env(map[string]string{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestFromEnv_Optional(t *testing.T) {
	values := baseEnv()
	values["SERVER_PORT"] = "9090"
	values["CLIENT_IDLE_TIMEOUT"] = "5m"
	values["COOKIE_SECURE"] = "false"
	values["LOG_LEVEL"] = "debug"
	values["ALLOWED_ORIGINS"] = "https://a.example, ,https://b.example"

	cfg, err := FromEnv(env(values))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 5*time.Minute, cfg.ClientIdleTimeout)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT":         "70000",
		"CLIENT_IDLE_TIMEOUT": "-1m",
		"COOKIE_SECURE":       "maybe",
		"LOG_LEVEL":           "loud",
		"SESSION_SECRET":      "short",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			values := baseEnv()
			values[key] = value
			_, err := FromEnv(env(values))
			assert.ErrorContains(t, err, key)
		})
	}
}
