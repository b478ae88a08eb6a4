package webchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/chappy-widget-api/internal/conversation"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/internal/usage"
)

type mapResolver map[string]*profile.BusinessProfile

func (m mapResolver) Resolve(_ context.Context, business string) (profile.Resolution, error) {
	for _, key := range []string{business, business + profile.DemoSuffix} {
		if p, ok := m[key]; ok {
			return profile.Resolution{Status: profile.Found, Profile: p, Key: key}, nil
		}
	}
	return profile.Resolution{Status: profile.NotFound}, nil
}

// countingGateway labels every message with label and echoes the user message back.
type countingGateway struct {
	mu       sync.Mutex
	label    string
	replyErr error
	calls    int
}

func (g *countingGateway) Complete(_ context.Context, messages []conversation.ChatMessage, opts conversation.CompletionOptions) (conversation.ChatMessage, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if opts.Purpose == "classify" {
		return conversation.ChatMessage{Role: conversation.ChatRoleAssistant, Content: g.label}, nil
	}
	if g.replyErr != nil {
		return conversation.ChatMessage{}, g.replyErr
	}
	last := messages[len(messages)-1].Content
	return conversation.ChatMessage{Role: conversation.ChatRoleAssistant, Content: "re: " + last}, nil
}

func (g *countingGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type subscriptionSet map[string]bool

func (s subscriptionSet) IsActive(_ context.Context, business string) (bool, error) {
	return s[business], nil
}

type fixture struct {
	service  *Service
	gateway  *countingGateway
	sessions *conversation.MemorySessionStore
	events   *usage.MemoryEventStore
}

func newFixture(t *testing.T, profiles mapResolver, subs subscriptionSet) *fixture {
	t.Helper()
	gw := &countingGateway{label: "SALES"}
	sessions := conversation.NewMemorySessionStore(time.Hour)
	engine := conversation.NewEngine(sessions, conversation.NewIntentClassifier(gw), conversation.NewTurnHandler(gw), nil)
	gate := usage.NewGate(subs, usage.NewMemoryDemoCounter())
	events := usage.NewMemoryEventStore()
	svc := NewService(profiles, gate, engine, nil, WithTracker(usage.NewTracker(events)))
	return &fixture{service: svc, gateway: gw, sessions: sessions, events: events}
}

func henriProfiles() mapResolver {
	return mapResolver{
		"Henri":    {Name: "Henri"},
		"AcmeDemo": {Name: "Acme", IsDemoMode: true, DemoMessageLimit: 2},
		"Expired":  {Name: "Expired", IsDemoMode: true, DemoExpiryDate: time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")},
	}
}

func TestService_DefaultsBusinessAndLanguage(t *testing.T) {
	f := newFixture(t, henriProfiles(), nil)

	resp, err := f.service.Chat(context.Background(), ChatRequest{SessionID: " s1 ", Message: " hello "})
	require.NoError(t, err)
	assert.Equal(t, conversation.IntentSales, resp.Intent)
	assert.Equal(t, "re: hello", resp.Reply)
	assert.Nil(t, resp.DemoStatus)

	sess, _ := f.sessions.Get(context.Background(), "Henri:s1")
	assert.Len(t, sess.History, 2)

	days, _ := f.events.Daily(context.Background(), "Henri", time.Time{})
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Messages)
}

func TestService_DemoLimitScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, henriProfiles(), nil)
	req := ChatRequest{SessionID: "s1", Message: "hi", Business: "Acme"}

	resp, err := f.service.Chat(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp.DemoStatus)
	assert.Equal(t, [3]any{1, 1, false}, [3]any{resp.DemoStatus.MessagesUsed, resp.DemoStatus.MessagesRemaining, resp.DemoStatus.LimitReached})

	resp, err = f.service.Chat(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, [3]any{2, 0, true}, [3]any{resp.DemoStatus.MessagesUsed, resp.DemoStatus.MessagesRemaining, resp.DemoStatus.LimitReached})

	callsBefore := f.gateway.Calls()
	resp, err = f.service.Chat(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, usage.LimitMessage(2), resp.Reply)
	assert.Empty(t, resp.Intent)
	assert.Equal(t, 2, resp.DemoStatus.MessagesUsed)
	assert.Equal(t, callsBefore, f.gateway.Calls())

	sess, _ := f.sessions.Get(ctx, "Acme:s1")
	assert.Len(t, sess.History, 4)
}

func TestService_ExpiredDemoMakesNoModelCalls(t *testing.T) {
	f := newFixture(t, henriProfiles(), nil)

	resp, err := f.service.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "hi", Business: "Expired"})
	require.NoError(t, err)
	assert.Equal(t, usage.ExpiredMessage, resp.Reply)
	require.NotNil(t, resp.DemoStatus)
	assert.True(t, resp.DemoStatus.Expired)
	assert.Zero(t, f.gateway.Calls())

	sess, _ := f.sessions.Get(context.Background(), "Expired:s1")
	assert.Empty(t, sess.History)
}

func TestService_SubscriptionIgnoresClientCount(t *testing.T) {
	f := newFixture(t, henriProfiles(), subscriptionSet{"Acme": true})
	count := 500

	resp, err := f.service.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "hi", Business: "Acme", DemoMessageCount: &count})
	require.NoError(t, err)
	assert.Equal(t, "re: hi", resp.Reply)
	assert.Nil(t, resp.DemoStatus)
}

func TestService_UnknownBusiness(t *testing.T) {
	f := newFixture(t, henriProfiles(), nil)

	_, err := f.service.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "hi", Business: "Nobody"})
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)
	assert.Zero(t, f.gateway.Calls())
}

func TestService_ValidationHappensBeforeSideEffects(t *testing.T) {
	f := newFixture(t, henriProfiles(), nil)
	tooMany := 1001
	negative := -1

	tests := []struct {
		name  string
		req   ChatRequest
		field string
	}{
		{"empty session", ChatRequest{SessionID: "  ", Message: "hi"}, "sessionId"},
		{"long session", ChatRequest{SessionID: strings.Repeat("s", 101), Message: "hi"}, "sessionId"},
		{"empty message", ChatRequest{SessionID: "s1", Message: " "}, "message"},
		{"long message", ChatRequest{SessionID: "s1", Message: strings.Repeat("m", 5001)}, "message"},
		{"bad language", ChatRequest{SessionID: "s1", Message: "hi", Language: "xx"}, "language"},
		{"norwegian not allowed", ChatRequest{SessionID: "s1", Message: "hi", Language: "no"}, "language"},
		{"bad business", ChatRequest{SessionID: "s1", Message: "hi", Business: "../etc"}, "business"},
		{"long business", ChatRequest{SessionID: "s1", Message: "hi", Business: strings.Repeat("b", 51)}, "business"},
		{"count too high", ChatRequest{SessionID: "s1", Message: "hi", DemoMessageCount: &tooMany}, "demoMessageCount"},
		{"count negative", ChatRequest{SessionID: "s1", Message: "hi", DemoMessageCount: &negative}, "demoMessageCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Chat(context.Background(), tt.req)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Details, 1)
			assert.Equal(t, tt.field, verr.Details[0].Field)
		})
	}
	assert.Zero(t, f.gateway.Calls())
}

func TestService_GatewayFailureCommitsNothing(t *testing.T) {
	f := newFixture(t, henriProfiles(), nil)
	f.gateway.replyErr = fmt.Errorf("%w: upstream 500", conversation.ErrGateway)

	_, err := f.service.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "hi"})
	assert.ErrorIs(t, err, conversation.ErrGateway)

	sess, _ := f.sessions.Get(context.Background(), "Henri:s1")
	assert.Empty(t, sess.History)
	days, _ := f.events.Daily(context.Background(), "Henri", time.Time{})
	assert.Empty(t, days)
}

func TestService_SessionsAreScopedPerBusiness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, henriProfiles(), nil)

	_, err := f.service.Chat(ctx, ChatRequest{SessionID: "same", Message: "one"})
	require.NoError(t, err)
	_, err = f.service.Chat(ctx, ChatRequest{SessionID: "same", Message: "two", Business: "Acme"})
	require.NoError(t, err)

	henri, _ := f.sessions.Get(ctx, "Henri:same")
	acme, _ := f.sessions.Get(ctx, "Acme:same")
	assert.Len(t, henri.History, 2)
	assert.Len(t, acme.History, 2)
}

func TestService_ConcurrentTurnsOnOneSessionKeepPairsTogether(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, henriProfiles(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.Chat(ctx, ChatRequest{SessionID: "s1", Message: fmt.Sprintf("m%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, _ := f.sessions.Get(ctx, "Henri:s1")
	require.Len(t, sess.History, 20)
	for i := 0; i < 20; i += 2 {
		assert.Equal(t, "re: "+sess.History[i].Content, sess.History[i+1].Content)
	}
}
