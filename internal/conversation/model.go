package conversation

import (
	"encoding/json"
	"strings"
	"time"
)

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is a single transcript entry. Entries are never edited once appended.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is one generated clarification question. An empty Options slice
// means the question is answered with free text only.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"text"`
	Options []string `json:"options"`
}

// Answer records the reply to a quiz question under the question's key.
type Answer struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Text       string `json:"text"`
}

// Lead is the contact data collected during the conversation. Empty strings
// mean the field has not been collected yet.
type Lead struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	MeetingTime string `json:"meeting_time,omitempty"`
}

// Brief is the project idea plus the quiz that refines it.
type Brief struct {
	Description string     `json:"description"`
	Questions   []Question `json:"questions,omitempty"`
	Answers     []Answer   `json:"answers,omitempty"`
}

// AnswerMap returns the answers keyed by question id.
func (b Brief) AnswerMap() map[string]string {
	out := make(map[string]string, len(b.Answers))
	for _, a := range b.Answers {
		out[a.QuestionID] = a.Text
	}
	return out
}

// Session is the complete state of one visitor's conversation.
type Session struct {
	ID    string
	State State
	Lead  Lead
	Brief Brief
	// Report holds the latest generated report; the budget report replaces
	// the timeline report.
	Report        string
	ReportReady   bool
	Transcript    []Message
	LeadDelivered bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type sessionJSON struct {
	ID            string        `json:"id"`
	State         stateEnvelope `json:"state"`
	Lead          Lead          `json:"lead"`
	Brief         Brief         `json:"brief"`
	Report        string        `json:"report,omitempty"`
	ReportReady   bool          `json:"report_ready,omitempty"`
	Transcript    []Message     `json:"transcript"`
	LeadDelivered bool          `json:"lead_delivered,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// MarshalJSON flattens the tagged state for storage.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionJSON{
		ID:            s.ID,
		State:         encodeState(s.State),
		Lead:          s.Lead,
		Brief:         s.Brief,
		Report:        s.Report,
		ReportReady:   s.ReportReady,
		Transcript:    s.Transcript,
		LeadDelivered: s.LeadDelivered,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	})
}

// UnmarshalJSON restores the tagged state, rejecting unknown phases.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := decodeState(raw.State)
	if err != nil {
		return err
	}
	*s = Session{
		ID:            raw.ID,
		State:         st,
		Lead:          raw.Lead,
		Brief:         raw.Brief,
		Report:        raw.Report,
		ReportReady:   raw.ReportReady,
		Transcript:    raw.Transcript,
		LeadDelivered: raw.LeadDelivered,
		CreatedAt:     raw.CreatedAt,
		UpdatedAt:     raw.UpdatedAt,
	}
	return nil
}

// Phase reports the current phase.
func (s *Session) Phase() Phase {
	if s == nil || s.State == nil {
		return PhaseInitial
	}
	return s.State.Phase()
}

// QuizStep returns the current quiz index while the quiz is running.
func (s *Session) QuizStep() (int, bool) {
	if q, ok := s.State.(RunningQuiz); ok {
		return q.Index, true
	}
	return 0, false
}

// ContactStep returns the contact sub-step while contacts are collected.
func (s *Session) ContactStep() (ContactStep, bool) {
	if c, ok := s.State.(CollectingContacts); ok {
		return c.Step, true
	}
	return "", false
}

// Action distinguishes free text from the structured scheduling controls.
type Action string

const (
	ActionMessage     Action = "message"
	ActionSelectSlot  Action = "select_slot"
	ActionSkipMeeting Action = "skip_meeting"
)

// Valid reports whether a is a known action. The zero value means message.
func (a Action) Valid() bool {
	switch a {
	case "", ActionMessage, ActionSelectSlot, ActionSkipMeeting:
		return true
	}
	return false
}

// Input is one user submission. Choices come from the multi-select chips and
// are joined into a single comma-separated answer.
type Input struct {
	Action  Action   `json:"action,omitempty"`
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

func (in Input) normalize(maxChars int) Input {
	out := Input{Action: in.Action}
	if out.Action == "" {
		out.Action = ActionMessage
	}
	parts := make([]string, 0, len(in.Choices)+1)
	for _, c := range in.Choices {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	if t := strings.TrimSpace(in.Text); t != "" {
		parts = append(parts, t)
	}
	out.Text = truncateRunes(strings.Join(parts, ", "), maxChars)
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

// WidgetKind tells the presentation adapter which control to render.
type WidgetKind string

const (
	WidgetNone    WidgetKind = "none"
	WidgetChoices WidgetKind = "choices"
	WidgetSlots   WidgetKind = "slots"
)

// Widget describes the phase-specific control shown under the last message.
type Widget struct {
	Kind      WidgetKind `json:"kind"`
	Options   []string   `json:"options,omitempty"`
	SkipLabel string     `json:"skip_label,omitempty"`
}

// Turn is the outcome of handling one input.
type Turn struct {
	SessionID   string           `json:"session_id"`
	Phase       Phase            `json:"phase"`
	Messages    []Message        `json:"messages"`
	Widget      Widget           `json:"widget"`
	Placeholder string           `json:"placeholder"`
	Rejection   *ValidationError `json:"rejection,omitempty"`
	// LeadDelivered is true on the turn that finished the lead.
	LeadDelivered bool `json:"lead_delivered,omitempty"`
	// Delivery is the finished lead, set on that same turn only.
	Delivery *Delivery `json:"-"`
}

// DeliveryStatus marks whether the visitor booked a meeting.
type DeliveryStatus string

const (
	StatusFull    DeliveryStatus = "full"
	StatusPartial DeliveryStatus = "partial"
)

// Delivery is what the lead sink receives when a session finishes.
type Delivery struct {
	SessionID   string
	Lead        Lead
	Brief       Brief
	Report      string
	Status      DeliveryStatus
	CompletedAt time.Time
}
