package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// NamedClient pairs a provider name with its client for logging.
type NamedClient struct {
	Name   string
	Client LLMClient
}

// FallbackLLMClient tries each provider in order until one succeeds.
type FallbackLLMClient struct {
	providers []NamedClient
	logger    *logging.Logger
}

// NewFallbackLLMClient drops nil clients. It panics when none remain.
func NewFallbackLLMClient(logger *logging.Logger, providers ...NamedClient) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	kept := make([]NamedClient, 0, len(providers))
	for _, p := range providers {
		if p.Client != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		panic("conversation: at least one llm provider is required")
	}
	return &FallbackLLMClient{providers: kept, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var errs []error
	for i, p := range c.providers {
		resp, err := p.Client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback llm succeeded", "provider", p.Name, "attempt", i+1)
			}
			return resp, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("llm provider failed", "provider", p.Name, "error", err, "remaining", len(c.providers)-i-1)
	}
	return LLMResponse{}, errors.Join(errs...)
}
