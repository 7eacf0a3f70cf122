package conversation

import "fmt"

// Phase names the stage of the scripted conversation.
type Phase string

const (
	PhaseInitial            Phase = "initial"
	PhaseCollectingName     Phase = "collecting_name"
	PhaseRunningQuiz        Phase = "running_quiz"
	PhaseCollectingContacts Phase = "collecting_contacts"
	PhaseScheduling         Phase = "scheduling"
	PhaseCompleted          Phase = "completed"
)

// ContactStep is the sub-step inside the contact collection phase.
type ContactStep string

const (
	ContactPhone ContactStep = "phone"
	ContactEmail ContactStep = "email"
)

// State is the tagged conversation state. Each variant carries only the
// sub-state its phase needs, so a quiz index can never coexist with a
// contact step.
type State interface {
	Phase() Phase
	isState()
}

// Initial waits for the free-text project description.
type Initial struct{}

// CollectingName waits for the lead's name.
type CollectingName struct{}

// RunningQuiz asks the generated questions one at a time.
type RunningQuiz struct {
	Index int
}

// CollectingContacts asks for the phone first, then the email.
type CollectingContacts struct {
	Step ContactStep
}

// Scheduling offers meeting slots or a skip.
type Scheduling struct{}

// Completed is terminal; further input goes to free-form chat.
type Completed struct{}

func (Initial) Phase() Phase            { return PhaseInitial }
func (CollectingName) Phase() Phase     { return PhaseCollectingName }
func (RunningQuiz) Phase() Phase        { return PhaseRunningQuiz }
func (CollectingContacts) Phase() Phase { return PhaseCollectingContacts }
func (Scheduling) Phase() Phase         { return PhaseScheduling }
func (Completed) Phase() Phase          { return PhaseCompleted }

func (Initial) isState()            {}
func (CollectingName) isState()     {}
func (RunningQuiz) isState()        {}
func (CollectingContacts) isState() {}
func (Scheduling) isState()         {}
func (Completed) isState()          {}

// stateEnvelope is the flat wire form of State used for persistence.
type stateEnvelope struct {
	Phase       Phase       `json:"phase"`
	QuizIndex   int         `json:"quiz_index,omitempty"`
	ContactStep ContactStep `json:"contact_step,omitempty"`
}

func encodeState(st State) stateEnvelope {
	switch v := st.(type) {
	case RunningQuiz:
		return stateEnvelope{Phase: PhaseRunningQuiz, QuizIndex: v.Index}
	case CollectingContacts:
		return stateEnvelope{Phase: PhaseCollectingContacts, ContactStep: v.Step}
	case nil:
		return stateEnvelope{Phase: PhaseInitial}
	default:
		return stateEnvelope{Phase: v.Phase()}
	}
}

func decodeState(env stateEnvelope) (State, error) {
	switch env.Phase {
	case PhaseInitial, "":
		return Initial{}, nil
	case PhaseCollectingName:
		return CollectingName{}, nil
	case PhaseRunningQuiz:
		if env.QuizIndex < 0 {
			return nil, fmt.Errorf("conversation: negative quiz index %d", env.QuizIndex)
		}
		return RunningQuiz{Index: env.QuizIndex}, nil
	case PhaseCollectingContacts:
		switch env.ContactStep {
		case ContactPhone, ContactEmail:
			return CollectingContacts{Step: env.ContactStep}, nil
		default:
			return nil, fmt.Errorf("conversation: unknown contact step %q", env.ContactStep)
		}
	case PhaseScheduling:
		return Scheduling{}, nil
	case PhaseCompleted:
		return Completed{}, nil
	default:
		return nil, fmt.Errorf("conversation: unknown phase %q", env.Phase)
	}
}
