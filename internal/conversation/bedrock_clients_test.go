package conversation

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConverseAPI struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (s *stubConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.input = params
	return s.out, s.err
}

func TestBedrockLLMClient_Converse(t *testing.T) {
	api := &stubConverseAPI{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "Hello "}, &brtypes.ContentBlockMemberText{Value: "world"}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(7), OutputTokens: aws.Int32(2), TotalTokens: aws.Int32(9)},
	}}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku-20240307-v1:0")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{"sys"},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
		MaxTokens:   5,
		Temperature: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Text)
	assert.Equal(t, int32(9), resp.Usage.TotalTokens)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 1)
	require.Len(t, api.input.Messages, 1)
	assert.Equal(t, brtypes.ConversationRoleUser, api.input.Messages[0].Role)
	assert.Equal(t, int32(5), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
	assert.Equal(t, float32(0), aws.ToFloat32(api.input.InferenceConfig.Temperature))
}

func TestBedrockLLMClient_RequiresModel(t *testing.T) {
	client := NewBedrockLLMClient(&stubConverseAPI{}, "")
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err)
}

func TestGeminiTurns_SplitsHistoryAndLastMessage(t *testing.T) {
	system, history, last, err := geminiTurns(LLMRequest{
		System: []string{"sys"},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "q1"},
			{Role: ChatRoleAssistant, Content: "a1"},
			{Role: ChatRoleUser, Content: "q2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	assert.Equal(t, "q2", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)

	_, _, _, err = geminiTurns(LLMRequest{})
	require.Error(t, err)
}
