package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	kindQuestions = "questions"
	kindTimeline  = "timeline"
	kindBudget    = "budget"
	kindFreeform  = "freeform"

	defaultTimeout   = 45 * time.Second
	defaultMaxTokens = 2048
)

var errEmptyResponse = errors.New("generation: empty response")

// Gateway turns conversation requests into LLM prompts. It never returns an
// error to the conversation: failures become fallback content.
type Gateway struct {
	client  LLMClient
	timeout time.Duration
	metrics *metrics.ConversationMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMetrics records call outcomes and latency.
func WithMetrics(m *metrics.ConversationMetrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

var _ conversation.Gateway = (*Gateway)(nil)

// NewGateway builds a gateway over client; a nil client behaves as
// unconfigured and always yields fallback content.
func NewGateway(client LLMClient, logger *logging.Logger, opts ...GatewayOption) *Gateway {
	if client == nil {
		client = NoopClient{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gateway{
		client:  client,
		timeout: defaultTimeout,
		logger:  logger,
		tracer:  otel.Tracer("leadchat.internal.generation"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateQuestions asks for niche-specific clarification questions. Any
// failure, including unparseable output, yields the default question set.
func (g *Gateway) GenerateQuestions(ctx context.Context, description string) []conversation.Question {
	text, err := g.complete(ctx, kindQuestions, LLMRequest{
		System:      []string{questionsSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: questionsPrompt(description)}},
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.4,
		JSON:        true,
	})
	if err == nil {
		questions, perr := parseQuestions(text)
		if perr == nil {
			return questions
		}
		err = perr
	}
	g.logger.Warn("generation: using default questions", "error", err)
	return conversation.DefaultQuestions()
}

func (g *Gateway) GenerateTimelineReport(ctx context.Context, description, answerSummary, userName string) conversation.Generated {
	return g.generate(ctx, kindTimeline, LLMRequest{
		System:      []string{analystSystemPrompt, timelineSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: timelinePrompt(description, answerSummary, userName)}},
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.5,
	})
}

func (g *Gateway) GenerateBudgetReport(ctx context.Context, priorReport string) conversation.Generated {
	return g.generate(ctx, kindBudget, LLMRequest{
		System:      []string{analystSystemPrompt, budgetSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: budgetPrompt(priorReport)}},
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.5,
	})
}

func (g *Gateway) GenerateFreeformReply(ctx context.Context, transcript []conversation.Message) conversation.Generated {
	history := chatHistory(transcript)
	if len(history) == 0 {
		return conversation.Generated{Text: FailureNotice, Fallback: true}
	}
	return g.generate(ctx, kindFreeform, LLMRequest{
		System:      []string{analystSystemPrompt},
		Messages:    history,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.7,
	})
}

func (g *Gateway) generate(ctx context.Context, kind string, req LLMRequest) conversation.Generated {
	text, err := g.complete(ctx, kind, req)
	if err != nil {
		g.logger.Warn("generation: returning failure notice", "kind", kind, "error", err)
		return conversation.Generated{Text: FailureNotice, Fallback: true}
	}
	return conversation.Generated{Text: text}
}

func (g *Gateway) complete(ctx context.Context, kind string, req LLMRequest) (string, error) {
	ctx, span := g.tracer.Start(ctx, "generation."+kind)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Complete(ctx, req)
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errEmptyResponse
	}
	elapsed := time.Since(start)
	g.metrics.ObserveGeneration(kind, err != nil, elapsed)

	span.SetAttributes(
		attribute.String("generation.kind", kind),
		attribute.Int("generation.output_tokens", int(resp.Usage.OutputTokens)),
	)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	g.logger.Debug("generation: call completed", "kind", kind, "elapsed_ms", elapsed.Milliseconds(), "stop_reason", resp.StopReason)
	return strings.TrimSpace(resp.Text), nil
}

// chatHistory maps the transcript onto strictly alternating chat turns that
// start with the user, as both providers require.
func chatHistory(transcript []conversation.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(transcript))
	for _, msg := range transcript {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		role := ChatRoleUser
		if msg.Sender == conversation.SenderAssistant {
			role = ChatRoleAssistant
		}
		if len(out) == 0 && role == ChatRoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + text
			continue
		}
		out = append(out, ChatMessage{Role: role, Content: text})
	}
	if n := len(out); n > 0 && out[n-1].Role != ChatRoleUser {
		out = out[:n-1]
	}
	return out
}
