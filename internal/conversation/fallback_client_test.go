package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackLLMClient_UsesSecondProviderOnFailure(t *testing.T) {
	primary := &stubLLMClient{err: errors.New("primary down")}
	secondary := &stubLLMClient{responses: []LLMResponse{{Text: "from secondary"}}}
	client := NewFallbackLLMClient(nil,
		NamedClient{Name: "openai", Client: primary},
		NamedClient{Name: "bedrock", Client: secondary},
	)

	resp, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "from secondary", resp.Text)
	assert.Len(t, primary.requests, 1)
	assert.Len(t, secondary.requests, 1)
}

func TestFallbackLLMClient_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &stubLLMClient{responses: []LLMResponse{{Text: "ok"}}}
	secondary := &stubLLMClient{}
	client := NewFallbackLLMClient(nil, NamedClient{Name: "a", Client: primary}, NamedClient{Name: "b", Client: secondary})

	_, err := client.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Empty(t, secondary.requests)
}

func TestFallbackLLMClient_JoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	client := NewFallbackLLMClient(nil, NamedClient{Name: "a", Client: &stubLLMClient{err: errA}}, NamedClient{Name: "b", Client: &stubLLMClient{err: errB}})

	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestFallbackLLMClient_PanicsWithoutProviders(t *testing.T) {
	assert.Panics(t, func() { NewFallbackLLMClient(nil, NamedClient{Name: "nil"}) })
}
