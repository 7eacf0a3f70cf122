package conversation

import "errors"

var (
	// ErrSessionBusy is returned while another input for the same session is in flight.
	ErrSessionBusy = errors.New("conversation: session busy")

	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("conversation: session not found")

	// ErrUnknownAction is returned for inputs whose action is not recognised.
	ErrUnknownAction = errors.New("conversation: unknown action")

	// ErrInvalidState is returned when a stored session violates a state invariant.
	ErrInvalidState = errors.New("conversation: invalid session state")
)

// Rejection reasons.
const (
	ReasonEmptyInput       = "empty_input"
	ReasonInvalidEmail     = "invalid_email"
	ReasonInvalidSlot      = "invalid_slot"
	ReasonUnexpectedAction = "unexpected_action"
)

// ValidationError is a recoverable input problem. The machine answers it with
// a corrective prompt and leaves the session state untouched.
type ValidationError struct {
	Reason string `json:"reason"`
	Prompt string `json:"prompt"`
}

func (e *ValidationError) Error() string {
	return "conversation: invalid input: " + e.Reason
}
