package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 25, cfg.DatabaseMaxConns)
	assert.Equal(t, 3*time.Second, cfg.TypingTTL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_MAX_CONNS", "50")
	t.Setenv("TYPING_TTL", "5s")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 50, cfg.DatabaseMaxConns)
	assert.Equal(t, 5*time.Second, cfg.TypingTTL)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_MAX_CONNS", "many")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg := Load()

	assert.Equal(t, 25, cfg.DatabaseMaxConns)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}
