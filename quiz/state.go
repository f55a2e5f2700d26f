package quiz

import (
	"errors"
	"fmt"
)

// State is the lifecycle stage of a session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateInProgress
	StateSubmitting
	StateCompleted
	StateFailed
)

var stateNames = [...]string{"loading", "ready", "in_progress", "submitting", "completed", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if string(b) == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("quiz: unknown state %q", string(b))
}

// Mode selects how a session is graded. It is fixed when the session is created.
type Mode int

const (
	// ModeDirect is scored locally against embedded answer keys.
	ModeDirect Mode = iota
	// ModeAttemptBased is a server-tracked regular quiz attempt.
	ModeAttemptBased
	// ModeMockTest is a timed mock test started and graded by the exam backend.
	ModeMockTest
)

var modeNames = [...]string{"direct", "attempt", "mock_test"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("quiz: unknown mode %q", s)
}

// Trigger records what started a submission.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerTimer  Trigger = "timer"
)

var (
	ErrSessionNotFound   = errors.New("quiz: session not found")
	ErrNotInProgress     = errors.New("quiz: session is not in progress")
	ErrAlreadySubmitting = errors.New("quiz: submission already in progress")
	ErrEntitlementDenied = errors.New("quiz: quiz attempt not allowed")
	ErrInvalidQuiz       = errors.New("quiz: quiz has no questions")
	ErrUnknownQuestion   = errors.New("quiz: unknown question")
	ErrInvalidOption     = errors.New("quiz: option index out of range")
	ErrInvalidIndex      = errors.New("quiz: question index out of range")
)

// genericSubmitError is shown when the backend gives no message.
const genericSubmitError = "Failed to submit quiz. Please try again."

// RejectedError is a submission the backend answered with success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "quiz: submission rejected: " + e.Message
}

// SubmitError wraps a failed submission together with the message shown to the user.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("quiz: submit failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
