package webchat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/chappy-widget-api/internal/conversation"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/internal/usage"
)

const (
	maxSessionIDLength = 100
	maxMessageLength   = 5000
	maxDemoCount       = 1000
)

// allowedLanguages are the codes the widget may request.
var allowedLanguages = map[string]bool{
	"en": true, "da": true, "es": true, "fr": true, "de": true, "it": true,
	"pt": true, "nl": true, "pl": true, "ru": true, "zh": true, "ja": true,
	"ko": true, "ar": true, "hi": true, "sv": true,
}

// ChatRequest is the widget's POST /api/chat body.
type ChatRequest struct {
	SessionID        string `json:"sessionId"`
	Message          string `json:"message"`
	Language         string `json:"language,omitempty"`
	Business         string `json:"business,omitempty"`
	DemoMessageCount *int   `json:"demoMessageCount,omitempty"`
}

// ChatResponse is returned for every handled turn, including gated ones.
type ChatResponse struct {
	Intent     conversation.Intent `json:"intent,omitempty"`
	Reply      string              `json:"reply"`
	DemoStatus *usage.DemoStatus   `json:"demoStatus,omitempty"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any side effect when the request is malformed.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return "webchat: invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Details = append(e.Details, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// normalize trims fields, applies defaults and validates. It returns a copy.
func (r ChatRequest) normalize(defaultBusiness string) (ChatRequest, error) {
	out := r
	out.SessionID = strings.TrimSpace(r.SessionID)
	out.Message = strings.TrimSpace(r.Message)
	out.Language = strings.ToLower(strings.TrimSpace(r.Language))
	out.Business = strings.TrimSpace(r.Business)

	verr := &ValidationError{}
	if n := utf8.RuneCountInString(out.SessionID); n < 1 || n > maxSessionIDLength {
		verr.add("sessionId", "must be between 1 and %d characters", maxSessionIDLength)
	}
	if n := utf8.RuneCountInString(out.Message); n < 1 || n > maxMessageLength {
		verr.add("message", "must be between 1 and %d characters", maxMessageLength)
	}
	if out.Language == "" {
		out.Language = conversation.DefaultLanguage
	} else if !allowedLanguages[out.Language] {
		verr.add("language", "unsupported language %q", out.Language)
	}
	if out.Business == "" {
		out.Business = defaultBusiness
	} else if !profile.ValidName(out.Business) {
		verr.add("business", "must match [a-zA-Z0-9_-] and be at most 50 characters")
	}
	if c := out.DemoMessageCount; c != nil && (*c < 0 || *c > maxDemoCount) {
		verr.add("demoMessageCount", "must be between 0 and %d", maxDemoCount)
	}

	if len(verr.Details) > 0 {
		return out, verr
	}
	return out, nil
}

// sessionKey scopes a client session id to its business so tenants never share history.
func sessionKey(business, sessionID string) string {
	return business + ":" + sessionID
}
