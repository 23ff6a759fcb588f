package form

import (
	"fmt"

	"resumeform/internal/errors"
)

// State is the single source of truth for which panel is visible
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateShowingResults
	StateShowingError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateShowingResults:
		return "showing_results"
	case StateShowingError:
		return "showing_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event triggers a state transition
type Event int

const (
	EventFileSelected Event = iota
	EventSubmit
	EventSucceeded
	EventFailed
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventFileSelected:
		return "file_selected"
	case EventSubmit:
		return "submit"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var (
	// ErrInvalidTransition is returned for an event the current state does not accept
	ErrInvalidTransition = errors.NewStateError(errors.ErrCodeInvalidTransition, "invalid form transition", nil)
	// ErrSubmissionInFlight is returned by a submit while another one is pending
	ErrSubmissionInFlight = errors.NewStateError(errors.ErrCodeSubmissionInFlight, "a submission is already in flight", nil)
	// ErrStaleResponse is returned when a response arrives after the form moved on
	ErrStaleResponse = errors.NewStateError(errors.ErrCodeStaleResponse, "response discarded after reset", nil)
)

// Transition returns the state reached from s on e. It is defined for every
// pair; pairs the form does not accept return an error and s unchanged.
//
//	any            --file_selected--> same
//	submitting     --submit-->        error (in flight)
//	other          --submit-->        submitting
//	submitting     --succeeded-->     showing_results
//	submitting     --failed-->        showing_error
//	any            --reset-->         idle
func Transition(s State, e Event) (State, error) {
	switch e {
	case EventFileSelected:
		return s, nil
	case EventSubmit:
		if s == StateSubmitting {
			return s, ErrSubmissionInFlight
		}
		return StateSubmitting, nil
	case EventSucceeded:
		if s == StateSubmitting {
			return StateShowingResults, nil
		}
	case EventFailed:
		if s == StateSubmitting {
			return StateShowingError, nil
		}
	case EventReset:
		return StateIdle, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}
