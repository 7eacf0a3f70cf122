package generation

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ErrNotConfigured is returned by NoopClient so every call degrades to the
// gateway's fallback content.
var ErrNotConfigured = errors.New("generation: no LLM provider configured")

// ChatMessage is a provider-neutral chat turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	// Model overrides the client's default model id when set.
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
	// JSON asks providers that support it to return application/json.
	JSON bool
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// NoopClient is used when no provider credentials are present.
type NoopClient struct{}

func (NoopClient) Complete(context.Context, LLMRequest) (LLMResponse, error) {
	return LLMResponse{}, ErrNotConfigured
}
