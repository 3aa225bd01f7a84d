package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL", "")
	t.Setenv("ATTENDANCE_THRESHOLD_DEFAULT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, 75, cfg.DefaultThreshold)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.CloudinaryConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("ATTENDANCE_THRESHOLD_DEFAULT", "80")
	t.Setenv("ALLOWED_ORIGINS", "https://anchor.app, http://localhost:3000,")
	t.Setenv("LOG_COMPRESS", "yes")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 80, cfg.DefaultThreshold)
	assert.Equal(t, []string{"https://anchor.app", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.LogCompress)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("LOG_COMPRESS", "maybe")

	cfg := Load()
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.False(t, cfg.LogCompress)
}
