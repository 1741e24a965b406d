package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "RUN_POLL_INTERVAL_MS", "RUN_MAX_POLLS"} {
		t.Setenv(key, "")
	}
	t.Setenv("ASSISTANT_MODEL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_ALLOWED_MODELS", "")

	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, time.Second, cfg.RunPollInterval)
	assert.Equal(t, 60, cfg.RunMaxPolls)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, cfg.Model, cfg.AssistantModel)
	assert.Nil(t, cfg.AllowedModels)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RUN_POLL_INTERVAL_MS", "250")
	t.Setenv("RUN_MAX_POLLS", "12")
	t.Setenv("ASSISTANT_MODEL", "gpt-4o-mini")
	t.Setenv("HTTP_PORT", "not-a-number")
	t.Setenv("LLM_ALLOWED_MODELS", " gpt-4o, ,gpt-4o-mini ")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.RunPollInterval)
	assert.Equal(t, 12, cfg.RunMaxPolls)
	assert.Equal(t, "gpt-4o-mini", cfg.AssistantModel)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, cfg.AllowedModels)
}
