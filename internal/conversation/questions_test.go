package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuestions(t *testing.T) {
	tests := []struct {
		name string
		in   []Question
		ids  []string
	}{
		{
			name: "keeps unique ids",
			in:   []Question{{ID: "goal", Prompt: "Goal?"}, {ID: "users", Prompt: "Users?"}},
			ids:  []string{"goal", "users"},
		},
		{
			name: "missing id falls back to position",
			in:   []Question{{Prompt: "Goal?"}, {ID: "", Prompt: "Users?"}},
			ids:  []string{"0", "1"},
		},
		{
			name: "duplicate id gets position suffix",
			in:   []Question{{ID: "q", Prompt: "One?"}, {ID: "q", Prompt: "Two?"}},
			ids:  []string{"q", "q_1"},
		},
		{
			name: "generated key colliding with an explicit id",
			in:   []Question{{ID: "1", Prompt: "One?"}, {Prompt: "Two?"}},
			ids:  []string{"1", "q1"},
		},
		{
			name: "blank prompts are dropped before numbering",
			in:   []Question{{ID: "a", Prompt: " "}, {Prompt: "Real?"}},
			ids:  []string{"0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NormalizeQuestions(tt.in)
			ids := make([]string, 0, len(out))
			for _, q := range out {
				ids = append(ids, q.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestNormalizeQuestions_TrimsOptions(t *testing.T) {
	out := NormalizeQuestions([]Question{{ID: "a", Prompt: " Goal? ", Options: []string{" MVP ", "", "Scale"}}})

	require.Len(t, out, 1)
	assert.Equal(t, "Goal?", out[0].Prompt)
	assert.Equal(t, []string{"MVP", "Scale"}, out[0].Options)
}

func TestDefaultQuestions(t *testing.T) {
	qs := DefaultQuestions()

	require.Len(t, qs, 2)
	for _, q := range qs {
		assert.NotEmpty(t, q.ID)
		assert.Len(t, q.Options, 4)
	}
	qs[0].Options[0] = "mutated"
	assert.Equal(t, "MVP", DefaultQuestions()[0].Options[0])
}

func TestAnswerSummary_SkipsUnanswered(t *testing.T) {
	b := Brief{
		Questions: DefaultQuestions(),
		Answers:   []Answer{{QuestionID: "features", Text: "Catalog"}},
	}

	assert.Equal(t, "What is the core functionality?: Catalog", AnswerSummary(b))
	assert.Equal(t, map[string]string{"features": "Catalog"}, b.AnswerMap())
}
