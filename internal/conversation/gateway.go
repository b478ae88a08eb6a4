package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

var llmTracer = otel.Tracer("chappy.internal.conversation.llm")

var llmLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "chappy",
		Subsystem: "conversation",
		Name:      "llm_latency_seconds",
		Help:      "Latency of LLM completions",
		Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30},
	},
	[]string{"model", "purpose", "status"},
)

var llmTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chappy",
		Subsystem: "conversation",
		Name:      "llm_tokens_total",
		Help:      "Tokens used by the LLM",
	},
	[]string{"model", "type"}, // type: input, output
)

func init() {
	prometheus.MustRegister(llmLatency)
	prometheus.MustRegister(llmTokensTotal)
}

// RegisterMetrics registers conversation metrics with a custom registry.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil || reg == prometheus.DefaultRegisterer {
		return
	}
	reg.MustRegister(llmLatency, llmTokensTotal)
}

// CompletionOptions tunes a single gateway call.
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int32
	// Purpose labels metrics and spans, e.g. "classify" or "reply".
	Purpose string
}

// Gateway is the language model seam used by the classifier and turn handler:
// role-tagged messages in, one assistant message out.
type Gateway interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (ChatMessage, error)
}

type GatewayOption func(*LLMGateway)

// WithModel sets the model id passed to the provider.
func WithModel(model string) GatewayOption {
	return func(g *LLMGateway) {
		g.model = model
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *LLMGateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithDefaultMaxTokens applies when a call leaves MaxTokens unset.
func WithDefaultMaxTokens(n int32) GatewayOption {
	return func(g *LLMGateway) {
		g.maxTokens = n
	}
}

// LLMGateway adapts an LLMClient to the Gateway contract, adding
// a timeout, tracing, metrics and ErrGateway wrapping.
type LLMGateway struct {
	client    LLMClient
	model     string
	timeout   time.Duration
	maxTokens int32
	logger    *logging.Logger
}

func NewLLMGateway(client LLMClient, logger *logging.Logger, opts ...GatewayOption) *LLMGateway {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &LLMGateway{client: client, timeout: 60 * time.Second, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *LLMGateway) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (ChatMessage, error) {
	purpose := opts.Purpose
	if purpose == "" {
		purpose = "reply"
	}
	ctx, span := llmTracer.Start(ctx, "conversation.llm."+purpose)
	defer span.End()

	system, turns := splitSystemAndMessages(messages)
	req := LLMRequest{
		Model:       g.model,
		System:      system,
		Messages:    turns,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = g.maxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Complete(callCtx, req)
	latency := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmLatency.WithLabelValues(g.model, purpose, status).Observe(latency.Seconds())
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("chappy.llm.purpose", purpose),
			attribute.String("chappy.llm.model", g.model),
			attribute.Int64("chappy.llm.latency_ms", latency.Milliseconds()),
			attribute.Int("chappy.llm.input_tokens", int(resp.Usage.InputTokens)),
			attribute.Int("chappy.llm.output_tokens", int(resp.Usage.OutputTokens)),
		)
	}
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("llm completion failed", "purpose", purpose, "model", g.model, "latency_ms", latency.Milliseconds(), "error", err)
		return ChatMessage{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if resp.Usage.InputTokens > 0 {
		llmTokensTotal.WithLabelValues(g.model, "input").Add(float64(resp.Usage.InputTokens))
	}
	if resp.Usage.OutputTokens > 0 {
		llmTokensTotal.WithLabelValues(g.model, "output").Add(float64(resp.Usage.OutputTokens))
	}

	text := strings.TrimSpace(resp.Text)
	g.logger.Debug("llm completion finished",
		"purpose", purpose,
		"model", g.model,
		"latency_ms", latency.Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	if text == "" {
		span.RecordError(ErrEmptyCompletion)
		return ChatMessage{}, fmt.Errorf("%w: %w", ErrGateway, ErrEmptyCompletion)
	}
	return ChatMessage{Role: ChatRoleAssistant, Content: text}, nil
}

func splitSystemAndMessages(history []ChatMessage) ([]string, []ChatMessage) {
	if len(history) == 0 {
		return nil, nil
	}
	system := make([]string, 0, 1)
	messages := make([]ChatMessage, 0, len(history))
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if msg.Role == ChatRoleSystem {
			system = append(system, msg.Content)
			continue
		}
		messages = append(messages, msg)
	}
	return system, messages
}
