package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// Generated is text produced by the gateway. Fallback is set when the text is
// the gateway's failure notice rather than model output.
type Generated struct {
	Text     string
	Fallback bool
}

// Gateway is the text-generation service the conversation depends on. None of
// its calls fail: on error they return fallback content.
type Gateway interface {
	GenerateQuestions(ctx context.Context, description string) []Question
	GenerateTimelineReport(ctx context.Context, description, answerSummary, userName string) Generated
	GenerateBudgetReport(ctx context.Context, priorReport string) Generated
	GenerateFreeformReply(ctx context.Context, transcript []Message) Generated
}

// Machine sequences the scripted conversation.
type Machine struct {
	gateway Gateway
	slots   []string
	maxText int
	now     func() time.Time
	newID   func() string
	logger  *logging.Logger
}

// MachineOption customizes a Machine.
type MachineOption func(*Machine)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(newID func() string) MachineOption {
	return func(m *Machine) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithMaxInputChars truncates longer inputs at a rune boundary.
func WithMaxInputChars(n int) MachineOption {
	return func(m *Machine) {
		m.maxText = n
	}
}

// NewMachine builds a conversation machine offering the given meeting slots.
func NewMachine(gateway Gateway, slots []string, logger *logging.Logger, opts ...MachineOption) *Machine {
	if gateway == nil {
		panic("conversation: gateway cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Machine{
		gateway: gateway,
		slots:   append([]string(nil), slots...),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Slots returns the meeting slots offered in the scheduling phase.
func (m *Machine) Slots() []string {
	return append([]string(nil), m.slots...)
}

// NewSession opens a conversation with the assistant greeting.
func (m *Machine) NewSession(id string) (*Session, Turn) {
	now := m.now()
	s := &Session{
		ID:        id,
		State:     Initial{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	greeting := m.message(SenderAssistant, greetingText)
	s.Transcript = append(s.Transcript, greeting)
	return s, m.turn(s, []Message{greeting}, nil)
}

// Handle applies one user input to the session. Rejected input leaves the
// state, lead, brief and report untouched. The returned error is reserved for
// sessions whose stored state is inconsistent.
//
// A finishing turn carries the lead in Turn.Delivery; the caller hands it to
// the sink once the session has been persisted.
func (m *Machine) Handle(ctx context.Context, s *Session, in Input) (Turn, error) {
	if s == nil {
		return Turn{}, errors.New("conversation: session is nil")
	}
	if s.State == nil {
		s.State = Initial{}
	}
	in = in.normalize(m.maxText)
	if in.Action == ActionSkipMeeting && in.Text == "" {
		in.Text = SkipLabel
	}
	if in.Text == "" {
		return m.reject(s, "", &ValidationError{Reason: ReasonEmptyInput, Prompt: emptyInputText}), nil
	}

	var (
		replies  []string
		delivery *Delivery
		err      error
	)
	switch st := s.State.(type) {
	case Initial:
		replies, err = m.onDescription(ctx, s, in)
	case CollectingName:
		replies, err = m.onName(s, in)
	case RunningQuiz:
		replies, err = m.onQuizAnswer(ctx, s, st, in)
	case CollectingContacts:
		replies, err = m.onContact(ctx, s, st, in)
	case Scheduling:
		replies, delivery, err = m.onScheduling(s, in)
	case Completed:
		replies, err = m.onFreeform(ctx, s, in)
	default:
		return Turn{}, fmt.Errorf("%w: unsupported state %T", ErrInvalidState, st)
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return m.reject(s, in.Text, verr), nil
	}
	if err != nil {
		return Turn{}, err
	}

	s.UpdatedAt = m.now()
	var emitted []Message
	if in.Text != "" {
		s.Transcript = append(s.Transcript, m.message(SenderUser, in.Text))
	}
	for _, text := range replies {
		msg := m.message(SenderAssistant, text)
		s.Transcript = append(s.Transcript, msg)
		emitted = append(emitted, msg)
	}
	turn := m.turn(s, emitted, nil)
	turn.Delivery = delivery
	turn.LeadDelivered = delivery != nil
	return turn, nil
}

func (m *Machine) onDescription(ctx context.Context, s *Session, in Input) ([]string, error) {
	if in.Action != ActionMessage {
		return nil, unexpectedAction(askDescriptionText)
	}
	questions := NormalizeQuestions(m.gateway.GenerateQuestions(ctx, in.Text))
	if len(questions) == 0 {
		questions = DefaultQuestions()
	}
	s.Brief.Description = in.Text
	s.Brief.Questions = questions
	s.State = CollectingName{}
	return []string{askNameText}, nil
}

func (m *Machine) onName(s *Session, in Input) ([]string, error) {
	if in.Action != ActionMessage {
		return nil, unexpectedAction(askNameAgainText)
	}
	if len(s.Brief.Questions) == 0 {
		s.Brief.Questions = DefaultQuestions()
	}
	s.Lead.Name = in.Text
	s.State = RunningQuiz{Index: 0}
	return []string{fmt.Sprintf(firstQuestionFormat, in.Text, s.Brief.Questions[0].Prompt)}, nil
}

func (m *Machine) onQuizAnswer(ctx context.Context, s *Session, st RunningQuiz, in Input) ([]string, error) {
	if st.Index < 0 || st.Index >= len(s.Brief.Questions) {
		return nil, fmt.Errorf("%w: quiz index %d outside %d questions", ErrInvalidState, st.Index, len(s.Brief.Questions))
	}
	current := s.Brief.Questions[st.Index]
	if in.Action != ActionMessage {
		return nil, unexpectedAction(current.Prompt)
	}

	s.Brief.Answers = upsertAnswer(s.Brief.Answers, Answer{
		QuestionID: current.ID,
		Question:   current.Prompt,
		Text:       in.Text,
	})

	if next := st.Index + 1; next < len(s.Brief.Questions) {
		s.State = RunningQuiz{Index: next}
		return []string{s.Brief.Questions[next].Prompt}, nil
	}

	report := m.gateway.GenerateTimelineReport(ctx, s.Brief.Description, AnswerSummary(s.Brief), s.Lead.Name)
	s.Report = report.Text
	s.ReportReady = !report.Fallback && strings.TrimSpace(report.Text) != ""
	s.State = CollectingContacts{Step: ContactPhone}

	first := report.Text
	if s.ReportReady {
		first = timelineIntroText + report.Text
	}
	return []string{first, askPhoneText}, nil
}

func (m *Machine) onContact(ctx context.Context, s *Session, st CollectingContacts, in Input) ([]string, error) {
	switch st.Step {
	case ContactPhone:
		if in.Action != ActionMessage {
			return nil, unexpectedAction(askPhoneAgainText)
		}
		s.Lead.Phone = in.Text
		s.State = CollectingContacts{Step: ContactEmail}
		return []string{askEmailText}, nil
	case ContactEmail:
		if in.Action != ActionMessage {
			return nil, unexpectedAction(askEmailText)
		}
		if !strings.Contains(in.Text, "@") {
			return nil, &ValidationError{Reason: ReasonInvalidEmail, Prompt: invalidEmailText}
		}
		s.Lead.Email = in.Text

		first := budgetUnavailable
		if s.ReportReady {
			budget := m.gateway.GenerateBudgetReport(ctx, s.Report)
			if budget.Fallback || strings.TrimSpace(budget.Text) == "" {
				first = budget.Text
				if strings.TrimSpace(first) == "" {
					first = budgetUnavailable
				}
			} else {
				s.Report = budget.Text
				first = budgetIntroText + budget.Text
			}
		}
		s.State = Scheduling{}
		return []string{first, askMeetingText}, nil
	default:
		return nil, fmt.Errorf("%w: unknown contact step %q", ErrInvalidState, st.Step)
	}
}

func (m *Machine) onScheduling(s *Session, in Input) ([]string, *Delivery, error) {
	if in.Action == ActionSkipMeeting || (in.Action == ActionMessage && isSkipText(in.Text)) {
		s.State = Completed{}
		return []string{skippedText}, m.complete(s, StatusPartial), nil
	}

	slot, ok := m.matchSlot(in.Text)
	if !ok {
		return nil, nil, &ValidationError{Reason: ReasonInvalidSlot, Prompt: invalidSlotText}
	}
	s.Lead.MeetingTime = slot
	s.State = Completed{}
	return []string{bookedText(slot, s.Lead.Email)}, m.complete(s, StatusFull), nil
}

func (m *Machine) onFreeform(ctx context.Context, s *Session, in Input) ([]string, error) {
	if in.Action != ActionMessage {
		return nil, unexpectedAction(alreadyCompletedText)
	}
	transcript := make([]Message, 0, len(s.Transcript)+1)
	transcript = append(transcript, s.Transcript...)
	transcript = append(transcript, m.message(SenderUser, in.Text))
	reply := m.gateway.GenerateFreeformReply(ctx, transcript)
	return []string{reply.Text}, nil
}

// complete marks the lead delivered and returns it, at most once per session.
func (m *Machine) complete(s *Session, status DeliveryStatus) *Delivery {
	if s.LeadDelivered {
		m.logger.Warn("conversation: lead already delivered", "session_id", s.ID)
		return nil
	}
	s.LeadDelivered = true
	return &Delivery{
		SessionID:   s.ID,
		Lead:        s.Lead,
		Brief:       copyBrief(s.Brief),
		Report:      s.Report,
		Status:      status,
		CompletedAt: m.now(),
	}
}

func (m *Machine) matchSlot(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, slot := range m.slots {
		if strings.EqualFold(slot, text) {
			return slot, true
		}
	}
	return "", false
}

func (m *Machine) reject(s *Session, userText string, verr *ValidationError) Turn {
	var emitted []Message
	// Blank input is dropped entirely; anything else stays on the record.
	if userText != "" {
		s.Transcript = append(s.Transcript, m.message(SenderUser, userText))
		if verr.Prompt != "" {
			msg := m.message(SenderAssistant, verr.Prompt)
			s.Transcript = append(s.Transcript, msg)
			emitted = append(emitted, msg)
		}
		s.UpdatedAt = m.now()
	} else if verr.Prompt != "" {
		emitted = append(emitted, m.message(SenderAssistant, verr.Prompt))
	}
	return m.turn(s, emitted, verr)
}

func (m *Machine) turn(s *Session, emitted []Message, verr *ValidationError) Turn {
	if emitted == nil {
		emitted = []Message{}
	}
	return Turn{
		SessionID:   s.ID,
		Phase:       s.Phase(),
		Messages:    emitted,
		Widget:      m.WidgetFor(s),
		Placeholder: placeholderFor(s.State),
		Rejection:   verr,
	}
}

// WidgetFor returns the control the presentation layer should show for the
// session's current state.
func (m *Machine) WidgetFor(s *Session) Widget {
	switch st := s.State.(type) {
	case RunningQuiz:
		if st.Index >= 0 && st.Index < len(s.Brief.Questions) {
			if opts := s.Brief.Questions[st.Index].Options; len(opts) > 0 {
				return Widget{Kind: WidgetChoices, Options: append([]string(nil), opts...)}
			}
		}
	case Scheduling:
		return Widget{Kind: WidgetSlots, Options: m.Slots(), SkipLabel: SkipLabel}
	}
	return Widget{Kind: WidgetNone}
}

// Placeholder returns the input hint for the session's current state.
func (m *Machine) Placeholder(s *Session) string {
	return placeholderFor(s.State)
}

func (m *Machine) message(sender Sender, text string) Message {
	return Message{
		ID:        m.newID(),
		Sender:    sender,
		Text:      text,
		CreatedAt: m.now(),
	}
}

func upsertAnswer(answers []Answer, a Answer) []Answer {
	for i := range answers {
		if answers[i].QuestionID == a.QuestionID {
			answers[i] = a
			return answers
		}
	}
	return append(answers, a)
}

func copyBrief(b Brief) Brief {
	return Brief{
		Description: b.Description,
		Questions:   append([]Question(nil), b.Questions...),
		Answers:     append([]Answer(nil), b.Answers...),
	}
}

func unexpectedAction(prompt string) *ValidationError {
	return &ValidationError{Reason: ReasonUnexpectedAction, Prompt: prompt}
}

func isSkipText(text string) bool {
	text = strings.TrimSpace(text)
	return strings.EqualFold(text, SkipLabel) || strings.EqualFold(text, "skip")
}
