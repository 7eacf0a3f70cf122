package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = in
	return f.out, f.err
}

func textOutput(parts ...string) *bedrockruntime.ConverseOutput {
	blocks := make([]brtypes.ContentBlock, 0, len(parts))
	for _, p := range parts {
		blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: p})
	}
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: blocks,
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(5), TotalTokens: aws.Int32(15)},
	}
}

func TestBedrockClient_Complete(t *testing.T) {
	api := &fakeConverse{out: textOutput("Hello", " there ")}
	client := NewBedrockClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System: []string{"be brief", " "},
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "extra rule"},
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello"},
			{Role: ChatRoleUser, Content: "more"},
		},
		MaxTokens:   256,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", resp.Text)
	assert.Equal(t, int32(15), resp.Usage.TotalTokens)
	assert.Equal(t, string(brtypes.StopReasonEndTurn), resp.StopReason)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 2)
	assert.Len(t, api.input.Messages, 3)
	assert.Equal(t, int32(256), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
}

func TestBedrockClient_JSONAddsInstruction(t *testing.T) {
	api := &fakeConverse{out: textOutput("[]")}
	client := NewBedrockClient(api, "m")

	_, err := client.Complete(context.Background(), LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "questions"}},
		Temperature: -1,
		JSON:        true,
	})
	require.NoError(t, err)

	assert.Len(t, api.input.System, 1)
	assert.Nil(t, api.input.InferenceConfig)
}

func TestBedrockClient_Errors(t *testing.T) {
	ctx := context.Background()
	user := []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}

	_, err := NewBedrockClient(&fakeConverse{}, "").Complete(ctx, LLMRequest{Messages: user})
	assert.ErrorContains(t, err, "model id is required")

	_, err = NewBedrockClient(&fakeConverse{}, "m").Complete(ctx, LLMRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	assert.ErrorContains(t, err, "unsupported role")

	_, err = NewBedrockClient(&fakeConverse{err: errors.New("throttled")}, "m").Complete(ctx, LLMRequest{Messages: user})
	assert.ErrorContains(t, err, "throttled")

	_, err = NewBedrockClient(&fakeConverse{out: textOutput(" ")}, "m").Complete(ctx, LLMRequest{Messages: user})
	assert.ErrorContains(t, err, "no text content")

	_, err = NewBedrockClient(&fakeConverse{}, "m").Complete(ctx, LLMRequest{})
	assert.Error(t, err)
}
