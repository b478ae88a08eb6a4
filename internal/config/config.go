package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DefaultBusiness string
	DatabaseURL     string

	// HTTP surface
	CORSAllowedOrigins     []string
	WidgetAPIKeys          []string
	AdminJWTSecret         string
	ChatRateLimitPerMinute int
	APIRateLimit           int
	APIRateWindow          time.Duration

	// Language model gateway
	LLMProvider         string
	LLMFallbackProvider string
	LLMTimeout          time.Duration
	LLMTemperature      float64
	LLMMaxTokens        int
	OpenAIAPIKey        string
	OpenAIModel         string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModel         string

	// Sessions and demo metering
	MaxHistoryMessages   int
	SessionTTL           time.Duration
	DemoTrustClientCount bool

	// Profiles
	ProfileBackend      string
	ProfilesDir         string
	InternalProfilesDir string
	ProfilesBucket      string
	ProfilesPrefix      string

	// Subscriptions
	SubscriptionBackend string
	SubscriptionsTable  string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultBusiness: getEnv("DEFAULT_BUSINESS", "Henri"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		WidgetAPIKeys:          getEnvAsList("API_KEYS", nil),
		AdminJWTSecret:         getEnv("ADMIN_JWT_SECRET", ""),
		ChatRateLimitPerMinute: getEnvAsInt("CHAT_RATE_LIMIT_PER_MINUTE", 20),
		APIRateLimit:           getEnvAsInt("API_RATE_LIMIT", 100),
		APIRateWindow:          getEnvAsDuration("API_RATE_WINDOW", 15*time.Minute),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.4),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 800),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		MaxHistoryMessages:   getEnvAsInt("MAX_HISTORY_MESSAGES", 24),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		DemoTrustClientCount: getEnvAsBool("DEMO_TRUST_CLIENT_COUNT", true),

		ProfileBackend:      strings.ToLower(strings.TrimSpace(getEnv("PROFILE_BACKEND", "file"))),
		ProfilesDir:         getEnv("PROFILES_DIR", "data/businessProfiles"),
		InternalProfilesDir: getEnv("INTERNAL_PROFILES_DIR", "data/internalProfiles"),
		ProfilesBucket:      getEnv("PROFILES_BUCKET", ""),
		ProfilesPrefix:      getEnv("PROFILES_PREFIX", "profiles/"),

		SubscriptionBackend: strings.ToLower(strings.TrimSpace(getEnv("SUBSCRIPTION_BACKEND", "memory"))),
		SubscriptionsTable:  getEnv("SUBSCRIPTIONS_TABLE", "chappy_subscriptions"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
