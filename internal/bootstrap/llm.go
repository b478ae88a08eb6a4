package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/chappy-widget-api/internal/config"
	"github.com/wolfman30/chappy-widget-api/internal/conversation"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// Provider names accepted by LLM_PROVIDER and LLM_FALLBACK_PROVIDER.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// BuildLLMClient returns the configured provider, wrapped in a fallback chain
// when a secondary provider is named. The returned model is empty for a chain
// so that each provider falls back to its own model id.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (conversation.LLMClient, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primary, model, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		return nil, "", err
	}
	fallbackName := cfg.LLMFallbackProvider
	if fallbackName == "" || fallbackName == cfg.LLMProvider {
		logger.Info("llm provider configured", "provider", cfg.LLMProvider, "model", model)
		return primary, model, nil
	}

	secondary, _, err := buildProvider(ctx, fallbackName, cfg, awsCfg)
	if err != nil {
		logger.Warn("fallback llm provider unavailable", "provider", fallbackName, "error", err)
		return primary, model, nil
	}
	logger.Info("llm provider configured", "provider", cfg.LLMProvider, "fallback", fallbackName, "model", model)
	return conversation.NewFallbackLLMClient(logger,
		conversation.NamedClient{Name: cfg.LLMProvider, Client: primary},
		conversation.NamedClient{Name: fallbackName, Client: secondary},
	), "", nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config) (conversation.LLMClient, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI, "":
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: openai: %w", err)
		}
		return client, cfg.OpenAIModel, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, "", fmt.Errorf("bootstrap: bedrock: BEDROCK_MODEL_ID is required")
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), cfg.BedrockModelID, nil
	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: gemini: %w", err)
		}
		return client, cfg.GeminiModel, nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

// BuildGateway wraps client with the configured timeout and token budget.
func BuildGateway(client conversation.LLMClient, model string, cfg *appconfig.Config, logger *logging.Logger) *conversation.LLMGateway {
	opts := []conversation.GatewayOption{conversation.WithModel(model)}
	if cfg.LLMTimeout > 0 {
		opts = append(opts, conversation.WithTimeout(cfg.LLMTimeout))
	}
	if cfg.LLMMaxTokens > 0 {
		opts = append(opts, conversation.WithDefaultMaxTokens(int32(cfg.LLMMaxTokens)))
	}
	return conversation.NewLLMGateway(client, logger, opts...)
}
