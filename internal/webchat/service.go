package webchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/chappy-widget-api/internal/conversation"
	"github.com/wolfman30/chappy-widget-api/internal/observability/metrics"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/internal/usage"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// DefaultBusiness is used when neither the request nor config names one.
const DefaultBusiness = "Henri"

// Responder runs one conversational turn.
type Responder interface {
	Respond(ctx context.Context, in conversation.RespondInput) (conversation.Result, error)
}

// Service runs the chat route: resolve, gate, respond, record.
type Service struct {
	profiles        profile.Resolver
	gate            *usage.Gate
	engine          Responder
	locker          *conversation.SessionLocker
	tracker         *usage.Tracker
	metrics         *metrics.ChatMetrics
	logger          *logging.Logger
	defaultBusiness string
}

type Option func(*Service)

// WithTracker records a message usage event for every answered turn.
func WithTracker(t *usage.Tracker) Option {
	return func(s *Service) {
		s.tracker = t
	}
}

func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithDefaultBusiness(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultBusiness = name
		}
	}
}

func WithLocker(l *conversation.SessionLocker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

func NewService(profiles profile.Resolver, gate *usage.Gate, engine Responder, logger *logging.Logger, opts ...Option) *Service {
	if profiles == nil {
		panic("webchat: profile resolver cannot be nil")
	}
	if gate == nil {
		panic("webchat: usage gate cannot be nil")
	}
	if engine == nil {
		panic("webchat: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		profiles:        profiles,
		gate:            gate,
		engine:          engine,
		locker:          conversation.NewSessionLocker(),
		logger:          logger,
		defaultBusiness: DefaultBusiness,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat validates req and produces the widget response. Errors are *ValidationError,
// wrap profile.ErrProfileNotFound, or are internal failures.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := time.Now()
	resp, outcome, err := s.chat(ctx, req)
	s.metrics.ObserveLatency(outcome, time.Since(start).Seconds())
	return resp, err
}

func (s *Service) chat(ctx context.Context, raw ChatRequest) (ChatResponse, string, error) {
	req, err := raw.normalize(s.defaultBusiness)
	if err != nil {
		s.metrics.ObserveRejected("invalid_input")
		return ChatResponse{}, "invalid", err
	}
	logger := s.logger.With("business", req.Business, "session_id", req.SessionID)

	p, err := profile.Load(ctx, s.profiles, req.Business)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			s.metrics.ObserveRejected("unknown_business")
			return ChatResponse{}, "not_found", err
		}
		logger.Error("profile lookup failed", "error", err)
		return ChatResponse{}, "error", fmt.Errorf("webchat: load profile: %w", err)
	}

	key := sessionKey(req.Business, req.SessionID)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return ChatResponse{}, "canceled", fmt.Errorf("webchat: wait for session: %w", err)
	}
	defer unlock()

	decision, err := s.gate.Evaluate(ctx, usage.GateInput{
		Business:    req.Business,
		SessionID:   req.SessionID,
		Profile:     p,
		ClientCount: req.DemoMessageCount,
	})
	if err != nil {
		logger.Error("usage gate failed", "error", err)
		return ChatResponse{}, "error", fmt.Errorf("webchat: usage gate: %w", err)
	}
	if !decision.Allowed {
		logger.Info("chat turn gated", "state", decision.State)
		s.metrics.ObserveRejected(string(decision.State))
		return ChatResponse{Reply: decision.Reply, DemoStatus: decision.Status}, "gated", nil
	}

	result, err := s.engine.Respond(ctx, conversation.RespondInput{
		SessionKey: key,
		Message:    req.Message,
		Language:   req.Language,
		Profile:    p,
	})
	if err != nil {
		logger.Error("chat turn failed", "state", decision.State, "intent", result.Intent, "error", err)
		s.metrics.ObserveTurn(string(result.Intent), "error")
		return ChatResponse{}, "error", fmt.Errorf("webchat: respond: %w", err)
	}
	s.metrics.ObserveTurn(string(result.Intent), "ok")

	if s.tracker != nil {
		if err := s.tracker.Log(ctx, req.Business, usage.EventMessage); err != nil {
			s.metrics.ObserveUsageEvent(string(usage.EventMessage), "error")
			logger.Warn("failed to record message event", "error", err)
		} else {
			s.metrics.ObserveUsageEvent(string(usage.EventMessage), "ok")
		}
	}

	logger.Info("chat turn answered", "state", decision.State, "intent", result.Intent)
	return ChatResponse{Intent: result.Intent, Reply: result.Reply, DemoStatus: decision.Status}, "ok", nil
}
