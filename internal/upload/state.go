// Package upload is the orchestration core: a pure transition function over
// State, the Display projection derived from it, and a Runner that carries
// out the effects transitions ask for.
package upload

import (
	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/stage"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseStaging
	PhaseSubmitting
	PhaseResult
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseStaging:
		return "staging"
	case PhaseSubmitting:
		return "submitting"
	case PhaseResult:
		return "result"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a cycle is in flight.
func (p Phase) Busy() bool {
	return p == PhaseValidating || p == PhaseStaging || p == PhaseSubmitting
}

// Terminal reports whether the cycle has ended and awaits a reset.
func (p Phase) Terminal() bool {
	return p == PhaseResult || p == PhaseError
}

// FailureKind says which step ended the cycle in PhaseError.
type FailureKind int

const (
	FailValidation FailureKind = iota + 1
	FailStaging
	FailNetwork
)

func (k FailureKind) String() string {
	switch k {
	case FailValidation:
		return "validation"
	case FailStaging:
		return "staging"
	case FailNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Failure is set only in PhaseError.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

// Cycle is one pass from selection to a terminal phase.
type Cycle struct {
	ID   string
	Mode media.Mode
	// File is cleared when validation rejects it.
	File   media.Candidate
	Staged *stage.Media
}

// State is the whole orchestration state. Only Transition produces new
// values; callers treat it as immutable.
type State struct {
	Phase    Phase
	Selector media.Selector
	Cycle    Cycle
	Result   *inference.Result
	Failure  *Failure
	// Alert is a one-shot notice raised by a network failure.
	Alert string
}

// NewState returns the Idle state for selector.
func NewState(selector media.Selector) State {
	return State{Phase: PhaseIdle, Selector: selector}
}
