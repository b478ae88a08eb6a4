package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DEFAULT_BUSINESS", "OPENAI_MODEL", "LLM_PROVIDER",
		"MAX_HISTORY_MESSAGES", "CORS_ALLOWED_ORIGINS", "API_KEYS", "DEMO_TRUST_CLIENT_COUNT", "LLM_TEMPERATURE"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "Henri", cfg.DefaultBusiness)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.InDelta(t, 0.4, cfg.LLMTemperature, 0.0001)
	assert.Equal(t, 24, cfg.MaxHistoryMessages)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Nil(t, cfg.WidgetAPIKeys)
	assert.True(t, cfg.DemoTrustClientCount)
	assert.Equal(t, 15*time.Minute, cfg.APIRateWindow)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LLM_PROVIDER", " Bedrock ")
	t.Setenv("API_KEYS", "key-a, key-b,,")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("MAX_HISTORY_MESSAGES", "10")
	t.Setenv("DEMO_TRUST_CLIENT_COUNT", "false")
	t.Setenv("LLM_TEMPERATURE", "0.1")
	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "bedrock", cfg.LLMProvider)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.WidgetAPIKeys)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.MaxHistoryMessages)
	assert.False(t, cfg.DemoTrustClientCount)
	assert.InDelta(t, 0.1, cfg.LLMTemperature, 0.0001)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("MAX_HISTORY_MESSAGES", "many")
	t.Setenv("API_KEYS", " , ")
	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24, cfg.MaxHistoryMessages)
	assert.Nil(t, cfg.WidgetAPIKeys)
}
