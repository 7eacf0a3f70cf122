package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadchat-ai/internal/conversation"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
)

const fiveQuestions = "```json\n" + `[
  {"id": "booking", "text": "How do clients book?", "options": ["Online", "Phone", "Walk-in", "Messenger"]},
  {"id": "staff", "text": "How many barbers?", "options": ["1", "2-5", "6-10", "10+"]},
  {"id": "loyalty", "text": "Loyalty program?", "options": ["Points", "Discounts", "None", "Not sure"]},
  {"text": "Payments?", "options": ["Card", "Cash", "Both", "Later"]},
  {"id": "booking", "text": "Reminders?", "options": ["SMS", "Email", "Push", "None"]}
]` + "\n```"

func TestGateway_GenerateQuestions(t *testing.T) {
	llm := &stubLLM{responses: []LLMResponse{{Text: fiveQuestions}}}
	g := NewGateway(llm, nil)

	questions := g.GenerateQuestions(context.Background(), "barbershop booking app")

	require.Len(t, questions, 5)
	assert.Equal(t, "booking", questions[0].ID)
	assert.Equal(t, "3", questions[3].ID)
	assert.Equal(t, "booking_4", questions[4].ID)
	assert.Len(t, questions[1].Options, 4)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].JSON)
	assert.Contains(t, reqs[0].Messages[0].Content, "barbershop booking app")
}

func TestGateway_GenerateQuestionsFallsBack(t *testing.T) {
	cases := map[string]*stubLLM{
		"provider error": {errs: []error{errors.New("boom")}},
		"not json":       {responses: []LLMResponse{{Text: "Sure! Here are some questions."}}},
		"empty array":    {responses: []LLMResponse{{Text: "[]"}}},
		"blank prompts":  {responses: []LLMResponse{{Text: `[{"id":"a","text":"  "}]`}}},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			questions := NewGateway(llm, nil).GenerateQuestions(context.Background(), "idea")
			assert.Equal(t, conversation.DefaultQuestions(), questions)
		})
	}
}

func TestGateway_Reports(t *testing.T) {
	llm := &stubLLM{responses: []LLMResponse{{Text: " MVP: 4 weeks "}}}
	g := NewGateway(llm, nil)

	got := g.GenerateTimelineReport(context.Background(), "barbershop booking app", "Goal?: MVP", "Olena")
	assert.Equal(t, conversation.Generated{Text: "MVP: 4 weeks"}, got)

	req := llm.Requests()[0]
	assert.Contains(t, req.Messages[0].Content, "Olena")
	assert.Contains(t, req.Messages[0].Content, "Goal?: MVP")
	assert.Contains(t, req.Messages[0].Content, "NO PRICES")

	got = g.GenerateBudgetReport(context.Background(), "MVP: 4 weeks")
	assert.False(t, got.Fallback)
	assert.Contains(t, llm.Requests()[1].Messages[0].Content, "MVP: 4 weeks")
}

func TestGateway_ReportFailuresReturnNotice(t *testing.T) {
	cases := map[string]*stubLLM{
		"error": {errs: []error{errors.New("throttled")}},
		"empty": {responses: []LLMResponse{{Text: "   "}}},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			got := NewGateway(llm, nil).GenerateTimelineReport(context.Background(), "d", "s", "n")
			assert.Equal(t, conversation.Generated{Text: FailureNotice, Fallback: true}, got)
		})
	}
}

func TestGateway_TimeoutYieldsFallback(t *testing.T) {
	llm := &stubLLM{block: true}
	g := NewGateway(llm, nil, WithTimeout(20*time.Millisecond))

	got := g.GenerateBudgetReport(context.Background(), "prior")

	assert.True(t, got.Fallback)
}

func TestGateway_UnconfiguredClient(t *testing.T) {
	g := NewGateway(nil, nil)
	ctx := context.Background()

	assert.Equal(t, conversation.DefaultQuestions(), g.GenerateQuestions(ctx, "idea"))
	assert.True(t, g.GenerateTimelineReport(ctx, "d", "s", "n").Fallback)
	assert.True(t, g.GenerateFreeformReply(ctx, []conversation.Message{{Sender: conversation.SenderUser, Text: "hi"}}).Fallback)
}

func TestGateway_FreeformHistory(t *testing.T) {
	llm := &stubLLM{responses: []LLMResponse{{Text: "Sure."}}}
	g := NewGateway(llm, nil)
	transcript := []conversation.Message{
		{Sender: conversation.SenderAssistant, Text: "Hi! Describe your idea?"},
		{Sender: conversation.SenderUser, Text: "barbershop app"},
		{Sender: conversation.SenderAssistant, Text: "Report"},
		{Sender: conversation.SenderAssistant, Text: "Your phone?"},
		{Sender: conversation.SenderUser, Text: "  "},
		{Sender: conversation.SenderUser, Text: "what next?"},
	}

	got := g.GenerateFreeformReply(context.Background(), transcript)

	assert.Equal(t, "Sure.", got.Text)
	assert.Equal(t, []ChatMessage{
		{Role: ChatRoleUser, Content: "barbershop app"},
		{Role: ChatRoleAssistant, Content: "Report\n\nYour phone?"},
		{Role: ChatRoleUser, Content: "what next?"},
	}, llm.Requests()[0].Messages)
}

func TestGateway_FreeformWithoutUserTurn(t *testing.T) {
	llm := &stubLLM{}
	got := NewGateway(llm, nil).GenerateFreeformReply(context.Background(), []conversation.Message{
		{Sender: conversation.SenderAssistant, Text: "Hi!"},
	})

	assert.True(t, got.Fallback)
	assert.Empty(t, llm.Requests())
}

func TestGateway_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	llm := &stubLLM{responses: []LLMResponse{{Text: "ok"}, {}}}
	g := NewGateway(llm, nil, WithMetrics(metrics.NewConversationMetrics(reg)))

	g.GenerateTimelineReport(context.Background(), "d", "s", "n")
	g.GenerateBudgetReport(context.Background(), "ok")

	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "leadchat_generation_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, lp := range m.GetLabel() {
				key += lp.GetValue() + "/"
			}
			outcomes[key] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"timeline/ok/": 1, "budget/fallback/": 1}, outcomes)
}
