package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
)

var errNoQuestions = errors.New("generation: response contained no questions")

// parseQuestions decodes a JSON question array. Markdown code fences and
// text around the array (including a {"questions": [...]} wrapper) are
// tolerated.
func parseQuestions(raw string) ([]conversation.Question, error) {
	body := stripCodeFence(raw)
	start, end := strings.Index(body, "["), strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil, errNoQuestions
	}

	var payload []generatedQuestion
	if err := json.Unmarshal([]byte(body[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("generation: decode questions: %w", err)
	}

	questions := make([]conversation.Question, 0, len(payload))
	for _, q := range payload {
		questions = append(questions, conversation.Question{
			ID:      q.ID.String(),
			Prompt:  q.Text,
			Options: q.Options,
		})
	}
	questions = conversation.NormalizeQuestions(questions)
	if len(questions) == 0 {
		return nil, errNoQuestions
	}
	return questions, nil
}

type generatedQuestion struct {
	ID      questionID `json:"id"`
	Text    string     `json:"text"`
	Options []string   `json:"options"`
}

// questionID accepts the id as a JSON string or number. Anything else is
// treated as missing so the question falls back to its ordinal key.
type questionID string

func (id *questionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = questionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = questionID(n.String())
		return nil
	}
	*id = ""
	return nil
}

func (id questionID) String() string {
	return string(id)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
