package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfman30/chappy-widget-api/internal/profile"
)

type gatewayCall struct {
	messages []ChatMessage
	opts     CompletionOptions
}

// scriptedGateway answers classify calls with label and reply calls from replies in order.
type scriptedGateway struct {
	mu       sync.Mutex
	label    string
	replies  []string
	replyErr error
	classErr error
	calls    []gatewayCall
}

func (g *scriptedGateway) Complete(_ context.Context, messages []ChatMessage, opts CompletionOptions) (ChatMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{messages: append([]ChatMessage(nil), messages...), opts: opts})
	if opts.Purpose == "classify" {
		if g.classErr != nil {
			return ChatMessage{}, g.classErr
		}
		return ChatMessage{Role: ChatRoleAssistant, Content: g.label}, nil
	}
	if g.replyErr != nil {
		return ChatMessage{}, g.replyErr
	}
	if len(g.replies) == 0 {
		return ChatMessage{}, errors.New("no scripted reply")
	}
	reply := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return ChatMessage{Role: ChatRoleAssistant, Content: reply}, nil
}

func (g *scriptedGateway) callsFor(purpose string) []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayCall
	for _, c := range g.calls {
		if c.opts.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}

type stubLLMClient struct {
	mu        sync.Mutex
	responses []LLMResponse
	err       error
	requests  []LLMRequest
}

func (s *stubLLMClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return LLMResponse{}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func testProfile() *profile.BusinessProfile {
	return &profile.BusinessProfile{
		Name:        "Henri",
		Description: "Hair salon in Copenhagen",
		Phone:       "+45 12 34 56 78",
		Email:       "hello@henri.dk",
		Currency:    "DKK",
		Services: []profile.Service{
			{Name: "Haircut", Price: "450"},
		},
	}
}
