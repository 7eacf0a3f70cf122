package leads

import (
	"strings"
	"time"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
)

// Status marks whether the visitor booked an intro call.
type Status string

const (
	StatusFull    Status = "full"
	StatusPartial Status = "partial"
)

// Answer is one quiz answer, kept with the question text so the stored lead
// reads on its own.
type Answer struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// Lead is a finished conversation as the sales team sees it.
type Lead struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	MeetingTime string    `json:"meeting_time,omitempty"`
	Description string    `json:"description"`
	Answers     []Answer  `json:"answers"`
	Report      string    `json:"report,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromDelivery converts what the conversation hands over into a Lead.
// Answers follow the order the questions were asked.
func FromDelivery(d conversation.Delivery) (*Lead, error) {
	if strings.TrimSpace(d.SessionID) == "" {
		return nil, ErrInvalidDelivery
	}
	status := Status(d.Status)
	if status != StatusFull && status != StatusPartial {
		return nil, ErrInvalidDelivery
	}

	byID := d.Brief.AnswerMap()
	answers := make([]Answer, 0, len(d.Brief.Answers))
	for _, q := range d.Brief.Questions {
		text, ok := byID[q.ID]
		if !ok {
			continue
		}
		answers = append(answers, Answer{QuestionID: q.ID, Question: q.Prompt, Answer: text})
	}

	createdAt := d.CompletedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Lead{
		SessionID:   d.SessionID,
		Name:        d.Lead.Name,
		Phone:       d.Lead.Phone,
		Email:       d.Lead.Email,
		MeetingTime: d.Lead.MeetingTime,
		Description: d.Brief.Description,
		Answers:     answers,
		Report:      d.Report,
		Status:      status,
		CreatedAt:   createdAt,
	}, nil
}

// ListFilter pages through leads, newest first.
type ListFilter struct {
	Limit  int
	Offset int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
