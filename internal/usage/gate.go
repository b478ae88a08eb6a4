package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/chappy-widget-api/internal/observability/metrics"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
)

// State is the gate's classification of a request.
type State string

const (
	StateSubscribed  State = "SUBSCRIBED"
	StateNotDemo     State = "NOT_DEMO"
	StateDemoExpired State = "DEMO_EXPIRED"
	StateDemoActive  State = "DEMO_ACTIVE"
)

// ExpiredMessage is the reply for a demo past its expiry date.
const ExpiredMessage = "This demo has expired. Please subscribe to continue using Chappy."

// LimitMessage is the reply once a demo session has used all its messages.
func LimitMessage(limit int) string {
	return fmt.Sprintf("You've reached the %d message limit for this demo. Subscribe to Chappy to continue chatting with unlimited messages!", limit)
}

// DemoStatus is returned to the widget alongside demo replies.
type DemoStatus struct {
	IsDemo             bool           `json:"isDemo"`
	Expired            bool           `json:"expired,omitempty"`
	MessageLimit       int            `json:"messageLimit"`
	MessagesUsed       int            `json:"messagesUsed"`
	MessagesRemaining  int            `json:"messagesRemaining"`
	LimitReached       bool           `json:"limitReached"`
	ExpiryDate         string         `json:"expiryDate,omitempty"`
	StripePaymentLink  string         `json:"stripePaymentLink,omitempty"`
	SubscriptionPrices map[string]any `json:"subscriptionPrices,omitempty"`
}

// Decision is the gate's verdict. When Allowed is false, Reply holds the fixed
// message to return instead of calling the model.
type Decision struct {
	State   State
	Allowed bool
	Status  *DemoStatus
	Reply   string
}

// SubscriptionChecker reports whether a business is on a paid plan.
type SubscriptionChecker interface {
	IsActive(ctx context.Context, business string) (bool, error)
}

// GateInput identifies the request being metered.
type GateInput struct {
	Business  string
	SessionID string
	Profile   *profile.BusinessProfile
	// ClientCount is the widget's own count, nil when not sent.
	ClientCount *int
}

type GateOption func(*Gate)

// WithClientCountTrust controls whether the widget's count may raise the server count.
func WithClientCountTrust(trust bool) GateOption {
	return func(g *Gate) {
		g.trustClient = trust
	}
}

// WithMetrics records each decision.
func WithMetrics(m *metrics.ChatMetrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// Gate decides whether a chat turn may proceed and meters demo usage.
// Callers serialize Evaluate per (business, session).
type Gate struct {
	subscriptions SubscriptionChecker
	counter       DemoCounter
	trustClient   bool
	metrics       *metrics.ChatMetrics
	now           func() time.Time
}

func NewGate(subscriptions SubscriptionChecker, counter DemoCounter, opts ...GateOption) *Gate {
	if subscriptions == nil {
		panic("usage: subscription checker cannot be nil")
	}
	if counter == nil {
		panic("usage: demo counter cannot be nil")
	}
	g := &Gate{subscriptions: subscriptions, counter: counter, trustClient: true, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate classifies the request and, for an allowed demo turn, advances the counter.
func (g *Gate) Evaluate(ctx context.Context, in GateInput) (Decision, error) {
	d, err := g.evaluate(ctx, in)
	if err != nil {
		return Decision{}, err
	}
	g.metrics.ObserveGate(string(d.State), d.Allowed)
	return d, nil
}

func (g *Gate) evaluate(ctx context.Context, in GateInput) (Decision, error) {
	active, err := g.subscriptions.IsActive(ctx, in.Business)
	if err != nil {
		return Decision{}, fmt.Errorf("usage: subscription lookup: %w", err)
	}
	if active {
		return Decision{State: StateSubscribed, Allowed: true}, nil
	}

	p := in.Profile
	if p == nil || !p.IsDemoMode {
		return Decision{State: StateNotDemo, Allowed: true}, nil
	}

	limit := p.MessageLimit()
	used, err := g.used(ctx, in)
	if err != nil {
		return Decision{}, err
	}
	status := &DemoStatus{
		IsDemo:             true,
		MessageLimit:       limit,
		ExpiryDate:         p.DemoExpiryDate,
		StripePaymentLink:  p.StripePaymentLink,
		SubscriptionPrices: p.SubscriptionPrices,
	}

	if p.DemoExpired(g.now()) {
		status.Expired = true
		status.MessagesUsed = used
		status.MessagesRemaining = 0
		status.LimitReached = used >= limit
		return Decision{State: StateDemoExpired, Status: status, Reply: ExpiredMessage}, nil
	}

	if used >= limit {
		status.MessagesUsed = used
		status.MessagesRemaining = 0
		status.LimitReached = true
		return Decision{State: StateDemoActive, Status: status, Reply: LimitMessage(limit)}, nil
	}

	next, err := g.counter.Advance(ctx, in.Business, in.SessionID, used+1)
	if err != nil {
		return Decision{}, err
	}
	status.MessagesUsed = next
	status.MessagesRemaining = max(limit-next, 0)
	status.LimitReached = next >= limit
	return Decision{State: StateDemoActive, Allowed: true, Status: status}, nil
}

// used is max(server, client) when the client count is trusted, else the server count.
func (g *Gate) used(ctx context.Context, in GateInput) (int, error) {
	server, err := g.counter.Get(ctx, in.Business, in.SessionID)
	if err != nil {
		return 0, err
	}
	if g.trustClient && in.ClientCount != nil && *in.ClientCount > server {
		return *in.ClientCount, nil
	}
	return server, nil
}
