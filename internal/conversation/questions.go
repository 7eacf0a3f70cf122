package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultQuestions is the generic quiz used when generation fails or
// returns nothing usable.
func DefaultQuestions() []Question {
	return []Question{
		{ID: "goal", Prompt: "What is the main goal of the project?", Options: []string{"MVP", "Scaling", "Automation", "New startup"}},
		{ID: "features", Prompt: "What is the core functionality?", Options: []string{"Booking/Reservations", "Catalog", "Customer account", "Admin panel"}},
	}
}

// NormalizeQuestions drops questions without a prompt and gives every
// remaining question a unique, deterministic key: its own id when present
// and unused, otherwise its ordinal position. A repeated id becomes
// "<id>_<position>".
func NormalizeQuestions(in []Question) []Question {
	out := make([]Question, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, q := range in {
		prompt := strings.TrimSpace(q.Prompt)
		if prompt == "" {
			continue
		}
		pos := len(out)
		key := strings.TrimSpace(q.ID)
		switch {
		case key == "":
			key = strconv.Itoa(pos)
		default:
			if _, dup := seen[key]; dup {
				key = fmt.Sprintf("%s_%d", key, pos)
			}
		}
		for {
			if _, dup := seen[key]; !dup {
				break
			}
			key = "q" + key
		}
		seen[key] = struct{}{}

		options := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			if opt = strings.TrimSpace(opt); opt != "" {
				options = append(options, opt)
			}
		}
		out = append(out, Question{ID: key, Prompt: prompt, Options: options})
	}
	return out
}

// AnswerSummary renders the quiz answers as "question: answer" lines in the
// order the questions were asked.
func AnswerSummary(b Brief) string {
	byID := make(map[string]Answer, len(b.Answers))
	for _, a := range b.Answers {
		byID[a.QuestionID] = a
	}
	lines := make([]string, 0, len(b.Answers))
	for _, q := range b.Questions {
		a, ok := byID[q.ID]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", q.Prompt, a.Text))
	}
	return strings.Join(lines, "\n")
}
