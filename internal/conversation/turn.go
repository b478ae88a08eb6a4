package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/chappy-widget-api/internal/profile"
)

const (
	defaultReplyTemperature   = 0.4
	defaultMaxHistoryMessages = 24
)

const salesAddendum = `SALES MODE:
The visitor is interested in buying. Recommend the services or products above that match what they ask for, with prices.
Qualify the lead one question at a time: name, email, company, budget and timeline, skipping anything they already told you.
Close by inviting them to book or buy using the links above.`

const supportAddendum = `SUPPORT MODE:
The visitor needs help. Ask a clarifying question when the problem is unclear, then give short step-by-step answers using only the facts above.
If you cannot solve it, escalate politely by sharing the phone number or email.`

const generalAddendum = `Be brief and polite.`

// TurnInput carries everything needed to produce one assistant reply.
type TurnInput struct {
	Profile  *profile.BusinessProfile
	History  []ChatMessage
	Message  string
	Language string
	Intent   Intent
}

type TurnOption func(*TurnHandler)

// WithReplyTemperature overrides the default 0.4.
func WithReplyTemperature(t float32) TurnOption {
	return func(h *TurnHandler) {
		h.temperature = t
	}
}

// WithMaxHistoryMessages caps how many prior messages are sent to the model.
// Zero or negative sends the full history.
func WithMaxHistoryMessages(n int) TurnOption {
	return func(h *TurnHandler) {
		h.maxHistory = n
	}
}

// WithSanitizer replaces the default reply sanitizer.
func WithSanitizer(s *ReplySanitizer) TurnOption {
	return func(h *TurnHandler) {
		if s != nil {
			h.sanitizer = s
		}
	}
}

// TurnHandler builds the branch prompt, calls the gateway and sanitizes the reply.
// It has no side effects; callers commit the turn to history.
type TurnHandler struct {
	gateway     Gateway
	sanitizer   *ReplySanitizer
	temperature float32
	maxHistory  int
}

func NewTurnHandler(gateway Gateway, opts ...TurnOption) *TurnHandler {
	if gateway == nil {
		panic("conversation: gateway cannot be nil")
	}
	h := &TurnHandler{
		gateway:     gateway,
		sanitizer:   NewReplySanitizer(),
		temperature: defaultReplyTemperature,
		maxHistory:  defaultMaxHistoryMessages,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TurnHandler) HandleTurn(ctx context.Context, in TurnInput) (string, error) {
	if in.Profile == nil {
		return "", errors.New("conversation: turn requires a business profile")
	}
	reply, err := h.gateway.Complete(ctx, h.messages(in), CompletionOptions{
		Temperature: h.temperature,
		Purpose:     "reply",
	})
	if err != nil {
		return "", fmt.Errorf("conversation: %s turn: %w", in.Intent, err)
	}
	return h.sanitizer.Sanitize(reply.Content), nil
}

// messages assembles [system, ...history window, user].
func (h *TurnHandler) messages(in TurnInput) []ChatMessage {
	history := windowHistory(in.History, h.maxHistory)
	out := make([]ChatMessage, 0, len(history)+2)
	out = append(out, ChatMessage{Role: ChatRoleSystem, Content: SystemPromptFor(in.Profile, in.Language, in.Intent)})
	out = append(out, history...)
	out = append(out, ChatMessage{Role: ChatRoleUser, Content: in.Message})
	return out
}

// SystemPromptFor returns the business prompt with the branch addendum for intent.
func SystemPromptFor(p *profile.BusinessProfile, language string, intent Intent) string {
	base := BuildPrompt(p, language)
	switch intent {
	case IntentSales:
		return base + "\n" + salesAddendum
	case IntentSupport:
		return base + "\n" + supportAddendum
	default:
		return base + "\n" + generalAddendum
	}
}

// windowHistory keeps the most recent limit messages, starting on a user turn
// so the model never sees an assistant reply without its question.
func windowHistory(history []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	window := history[len(history)-limit:]
	for len(window) > 0 && window[0].Role != ChatRoleUser {
		window = window[1:]
	}
	return window
}
