package conversation

import (
	"context"
	"fmt"
	"strings"
)

// Intent is the coarse label that picks a prompt branch.
type Intent string

const (
	IntentSales   Intent = "SALES"
	IntentSupport Intent = "SUPPORT"
	IntentOther   Intent = "OTHER"
)

const intentClassifierPrompt = `You are an intent classifier for a website chatbot.
Decide if the user wants SALES, SUPPORT, or OTHER.
Return only one word: SALES, SUPPORT, or OTHER.`

// IntentClassifier labels a user message with a single zero-temperature model call.
type IntentClassifier struct {
	gateway Gateway
}

func NewIntentClassifier(gateway Gateway) *IntentClassifier {
	if gateway == nil {
		panic("conversation: gateway cannot be nil")
	}
	return &IntentClassifier{gateway: gateway}
}

// Classify returns SALES, SUPPORT or OTHER. Gateway errors propagate with no fallback label.
func (c *IntentClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	reply, err := c.gateway.Complete(ctx, []ChatMessage{
		{Role: ChatRoleSystem, Content: intentClassifierPrompt},
		{Role: ChatRoleUser, Content: message},
	}, CompletionOptions{Temperature: 0, MaxTokens: 5, Purpose: "classify"})
	if err != nil {
		return "", fmt.Errorf("conversation: classify intent: %w", err)
	}
	return ParseIntent(reply.Content), nil
}

// ParseIntent maps free-form model output onto an Intent. SALES wins over SUPPORT;
// anything unrecognised is OTHER.
func ParseIntent(label string) Intent {
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, string(IntentSales)):
		return IntentSales
	case strings.Contains(upper, string(IntentSupport)):
		return IntentSupport
	default:
		return IntentOther
	}
}
