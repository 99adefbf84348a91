package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	assert.Equal(t, "officebuddy.chat", cfg.Subject("chat"))
	assert.Equal(t, 0.7, cfg.RoutingThreshold)
	assert.Equal(t, 6, cfg.ContextKeepRecent)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.InMemorySessions())
	assert.False(t, cfg.LogPretty)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("NATS_SUBJECT_PREFIX", "hr.")
	t.Setenv("ROUTING_CONFIDENCE_THRESHOLD", "0.55")
	t.Setenv("CONTEXT_KEEP_RECENT", "10")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("REDIS_URL", "memory")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LLM_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hr.login", cfg.Subject("login"))
	assert.Equal(t, 0.55, cfg.RoutingThreshold)
	assert.Equal(t, 10, cfg.ContextKeepRecent)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
	assert.True(t, cfg.InMemorySessions())
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ROUTING_CONFIDENCE_THRESHOLD", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	assert.Contains(t, err.Error(), "ROUTING_CONFIDENCE_THRESHOLD")
}
