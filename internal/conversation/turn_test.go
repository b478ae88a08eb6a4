package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnHandler_MessageOrderAndTemperature(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"Sure: - [Haircut](#): 450 DKK"}}
	h := NewTurnHandler(gw)
	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "hi"},
		{Role: ChatRoleAssistant, Content: "hello!"},
	}

	reply, err := h.HandleTurn(context.Background(), TurnInput{
		Profile:  testProfile(),
		History:  history,
		Message:  "what does a haircut cost?",
		Language: "en",
		Intent:   IntentSales,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure:\n\n- [Haircut](#): 450 DKK", reply)

	calls := gw.callsFor("reply")
	require.Len(t, calls, 1)
	msgs := calls[0].messages
	require.Len(t, msgs, 4)
	assert.Equal(t, ChatRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "SALES MODE:")
	assert.Equal(t, history[0], msgs[1])
	assert.Equal(t, history[1], msgs[2])
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "what does a haircut cost?"}, msgs[3])
	assert.InDelta(t, 0.4, calls[0].opts.Temperature, 1e-6)
}

func TestTurnHandler_BranchAddenda(t *testing.T) {
	p := testProfile()
	assert.Contains(t, SystemPromptFor(p, "en", IntentSales), "SALES MODE:")
	assert.Contains(t, SystemPromptFor(p, "en", IntentSupport), "SUPPORT MODE:")

	other := SystemPromptFor(p, "en", IntentOther)
	assert.True(t, strings.HasSuffix(other, "Be brief and polite."))
	assert.NotContains(t, other, "SALES MODE:")
	assert.NotContains(t, other, "SUPPORT MODE:")
}

func TestTurnHandler_WindowsLongHistory(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"ok"}}
	h := NewTurnHandler(gw, WithMaxHistoryMessages(4))

	var history []ChatMessage
	for i := 0; i < 5; i++ {
		history = append(history,
			ChatMessage{Role: ChatRoleUser, Content: fmt.Sprintf("q%d", i)},
			ChatMessage{Role: ChatRoleAssistant, Content: fmt.Sprintf("a%d", i)},
		)
	}

	_, err := h.HandleTurn(context.Background(), TurnInput{Profile: testProfile(), History: history, Message: "next", Intent: IntentOther})
	require.NoError(t, err)

	msgs := gw.callsFor("reply")[0].messages
	require.Len(t, msgs, 6)
	assert.Equal(t, "q3", msgs[1].Content)
	assert.Equal(t, "a4", msgs[4].Content)
}

func TestWindowHistory_StartsOnUserMessage(t *testing.T) {
	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "q0"},
		{Role: ChatRoleAssistant, Content: "a0"},
		{Role: ChatRoleUser, Content: "q1"},
		{Role: ChatRoleAssistant, Content: "a1"},
	}
	window := windowHistory(history, 3)
	require.Len(t, window, 2)
	assert.Equal(t, "q1", window[0].Content)

	assert.Len(t, windowHistory(history, 0), 4)
	assert.Len(t, windowHistory(history, 10), 4)
}

func TestTurnHandler_GatewayErrorIsWrapped(t *testing.T) {
	gw := &scriptedGateway{replyErr: fmt.Errorf("%w: boom", ErrGateway)}
	h := NewTurnHandler(gw)

	reply, err := h.HandleTurn(context.Background(), TurnInput{Profile: testProfile(), Message: "hi", Intent: IntentSupport})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))
	assert.Empty(t, reply)
}

func TestTurnHandler_RequiresProfile(t *testing.T) {
	h := NewTurnHandler(&scriptedGateway{replies: []string{"x"}})
	_, err := h.HandleTurn(context.Background(), TurnInput{Message: "hi"})
	require.Error(t, err)
}
