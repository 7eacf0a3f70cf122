package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

const defaultLockTTL = 2 * time.Minute

// LeadSink receives the finished lead. Deliver must not block on the
// downstream transport and reports nothing back.
type LeadSink interface {
	Deliver(ctx context.Context, d Delivery)
}

// Service owns session lifecycle: it loads a session, runs one input through
// the machine under a per-session lock, saves the result and only then hands a
// finished lead to the sink.
type Service struct {
	machine *Machine
	sink    LeadSink
	store   SessionStore
	locker  Locker
	lockTTL time.Duration
	metrics *metrics.ConversationMetrics
	logger  *logging.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLockTTL bounds how long a crashed turn can keep a session locked.
func WithLockTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithMetrics records turn outcomes.
func WithMetrics(m *metrics.ConversationMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the machine to storage. Nil store or locker fall back to
// the in-memory implementations.
func NewService(machine *Machine, sink LeadSink, store SessionStore, locker Locker, logger *logging.Logger, opts ...ServiceOption) *Service {
	if machine == nil {
		panic("conversation: machine cannot be nil")
	}
	if sink == nil {
		panic("conversation: lead sink cannot be nil")
	}
	if store == nil {
		store = NewMemorySessionStore(0)
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		machine: machine,
		sink:    sink,
		store:   store,
		locker:  locker,
		lockTTL: defaultLockTTL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new session and returns the greeting turn.
func (s *Service) Start(ctx context.Context) (*Session, Turn, error) {
	session, turn := s.machine.NewSession(uuid.NewString())
	if err := s.store.Save(ctx, session); err != nil {
		return nil, Turn{}, fmt.Errorf("conversation: save new session: %w", err)
	}
	s.metrics.ObserveSessionStarted()
	s.logger.Info("conversation started", "session_id", session.ID)
	return session, turn, nil
}

// Handle runs one input. A second input arriving while the first is still
// being processed is rejected with ErrSessionBusy.
func (s *Service) Handle(ctx context.Context, sessionID string, in Input) (Turn, error) {
	if !in.Action.Valid() {
		return Turn{}, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
	}
	unlock, err := s.locker.TryLock(ctx, sessionID, s.lockTTL)
	if err != nil {
		if errors.Is(err, ErrSessionBusy) {
			s.metrics.ObserveTurn("unknown", metrics.OutcomeBusy)
		}
		return Turn{}, err
	}
	// Gateway calls run to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if err := unlock(ctx); err != nil {
			s.logger.Warn("conversation: release session lock failed", "session_id", sessionID, "error", err)
		}
	}()

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}
	arrived := session.Phase()
	logger := s.logger.WithSession(sessionID)

	turn, err := s.machine.Handle(ctx, session, in)
	if err != nil {
		s.metrics.ObserveTurn(string(arrived), metrics.OutcomeError)
		logger.Error("conversation: turn failed", "phase", arrived, "error", err)
		return Turn{}, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		s.metrics.ObserveTurn(string(arrived), metrics.OutcomeError)
		return Turn{}, fmt.Errorf("conversation: save session: %w", err)
	}
	// The stored LeadDelivered flag is what keeps a retry from delivering twice.
	if turn.Delivery != nil {
		s.sink.Deliver(ctx, *turn.Delivery)
		logger.Info("conversation: lead handed to sink", "status", turn.Delivery.Status)
	}

	outcome := metrics.OutcomeOK
	if turn.Rejection != nil {
		outcome = metrics.OutcomeRejected
		logger.Info("conversation: input rejected", "phase", arrived, "reason", turn.Rejection.Reason)
	} else {
		logger.Info("conversation: turn handled", "from", arrived, "to", turn.Phase)
	}
	s.metrics.ObserveTurn(string(arrived), outcome)
	return turn, nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.View(session), nil
}

// View renders a session for presentation adapters.
func (s *Service) View(session *Session) *View {
	v := &View{
		SessionID:   session.ID,
		Phase:       session.Phase(),
		Lead:        session.Lead,
		Messages:    append([]Message{}, session.Transcript...),
		Widget:      s.machine.WidgetFor(session),
		Placeholder: s.machine.Placeholder(session),
	}
	if step, ok := session.QuizStep(); ok {
		v.QuizStep = &step
		v.QuizTotal = len(session.Brief.Questions)
	}
	if step, ok := session.ContactStep(); ok {
		v.ContactStep = step
	}
	if session.Phase() == PhaseCompleted {
		v.Report = session.Report
	}
	return v
}

// View is the read model of a session.
type View struct {
	SessionID   string      `json:"session_id"`
	Phase       Phase       `json:"phase"`
	QuizStep    *int        `json:"quiz_step,omitempty"`
	QuizTotal   int         `json:"quiz_total,omitempty"`
	ContactStep ContactStep `json:"contact_step,omitempty"`
	Lead        Lead        `json:"lead"`
	Messages    []Message   `json:"messages"`
	Widget      Widget      `json:"widget"`
	Placeholder string      `json:"placeholder"`
	Report      string      `json:"report,omitempty"`
}
