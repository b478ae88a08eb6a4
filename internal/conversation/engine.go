package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// RespondInput is one user message for an already-resolved business.
type RespondInput struct {
	SessionKey string
	Message    string
	Language   string
	Profile    *profile.BusinessProfile
}

// Result is the outcome of a committed turn.
type Result struct {
	Intent  Intent
	Reply   string
	Session *Session
}

// Engine runs classify → turn → commit for a session.
// Callers that may see concurrent requests for one session should hold a SessionLocker key.
type Engine struct {
	sessions   SessionStore
	classifier *IntentClassifier
	turns      *TurnHandler
	logger     *logging.Logger
}

func NewEngine(sessions SessionStore, classifier *IntentClassifier, turns *TurnHandler, logger *logging.Logger) *Engine {
	if sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if classifier == nil {
		panic("conversation: classifier cannot be nil")
	}
	if turns == nil {
		panic("conversation: turn handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{sessions: sessions, classifier: classifier, turns: turns, logger: logger}
}

// Respond produces a reply and appends the user/assistant pair to history.
// Nothing is written when classification or the reply fails.
func (e *Engine) Respond(ctx context.Context, in RespondInput) (Result, error) {
	if in.SessionKey == "" {
		return Result{}, errors.New("conversation: session key required")
	}
	sess, err := e.sessions.Get(ctx, in.SessionKey)
	if err != nil {
		return Result{}, fmt.Errorf("conversation: load session: %w", err)
	}

	intent, err := e.classifier.Classify(ctx, in.Message)
	if err != nil {
		return Result{}, err
	}

	reply, err := e.turns.HandleTurn(ctx, TurnInput{
		Profile:  in.Profile,
		History:  sess.History,
		Message:  in.Message,
		Language: in.Language,
		Intent:   intent,
	})
	if err != nil {
		return Result{Intent: intent}, err
	}

	updated, err := e.sessions.AppendTurn(ctx, in.SessionKey, intent,
		ChatMessage{Role: ChatRoleUser, Content: in.Message},
		ChatMessage{Role: ChatRoleAssistant, Content: reply},
	)
	if err != nil {
		return Result{Intent: intent}, fmt.Errorf("conversation: commit turn: %w", err)
	}

	e.logger.Debug("turn committed", "session_key", in.SessionKey, "intent", intent, "history_len", len(updated.History))
	return Result{Intent: intent, Reply: reply, Session: updated}, nil
}

// Session returns the stored conversation for key.
func (e *Engine) Session(ctx context.Context, key string) (*Session, error) {
	return e.sessions.Get(ctx, key)
}
