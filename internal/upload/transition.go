package upload

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/stage"
)

var (
	// ErrIgnored is returned when an event does not apply to the current
	// phase. The state is returned unchanged.
	ErrIgnored = errors.New("upload: event ignored")
	// ErrStale is returned for answers that belong to an earlier cycle.
	ErrStale = errors.New("upload: event from a stale cycle")
)

// NetworkMessage is shown when the classifier could not be reached or
// answered with an error.
const NetworkMessage = "An error occurred while processing the file. Please try again."

var newCycleID = uuid.NewString

// Transition computes the state that follows ev. It performs no I/O; the
// returned effects describe the work an interpreter must do next.
func Transition(s State, ev Event) (State, []Effect, error) {
	switch ev := ev.(type) {
	case ModeSelected:
		s.Selector = s.Selector.WithMode(ev.Mode)
		return s, nil, nil

	case FileSelected:
		if s.Phase != PhaseIdle {
			return s, nil, fmt.Errorf("%w: file selected while %s", ErrIgnored, s.Phase)
		}
		mode := s.Selector.Mode()
		s.Cycle = Cycle{ID: newCycleID(), Mode: mode, File: ev.File}
		s.Phase = PhaseValidating
		s.Result, s.Failure, s.Alert = nil, nil, ""
		return s, []Effect{Validate{
			CycleID: s.Cycle.ID,
			File:    ev.File,
			Mode:    mode,
			Rules:   s.Selector.Ruleset(),
		}}, nil

	case Validated:
		if err := expect(s, PhaseValidating, ev.CycleID); err != nil {
			return s, nil, err
		}
		if ev.Err != nil {
			s.Cycle = Cycle{ID: s.Cycle.ID, Mode: s.Cycle.Mode}
			s.Phase = PhaseError
			s.Failure = &Failure{Kind: FailValidation, Message: validationMessage(ev.Err), Err: ev.Err}
			return s, nil, nil
		}
		s.Phase = PhaseStaging
		return s, []Effect{Stage{CycleID: s.Cycle.ID, File: s.Cycle.File, Mode: s.Cycle.Mode}}, nil

	case Staged:
		if err := expect(s, PhaseStaging, ev.CycleID); err != nil {
			if ev.Media == s.Cycle.Staged {
				return s, nil, err
			}
			return s, releaseOf(ev.Media), err
		}
		if ev.Err != nil {
			s.Phase = PhaseError
			s.Failure = &Failure{Kind: FailStaging, Message: stagingMessage(ev.Err, s.Selector.Ruleset(), s.Cycle.Mode), Err: ev.Err}
			return s, releaseOf(ev.Media), nil
		}
		if ev.Media == nil {
			return s, nil, fmt.Errorf("%w: staged without media", ErrIgnored)
		}
		s.Cycle.Staged = ev.Media
		s.Phase = PhaseSubmitting
		return s, []Effect{Submit{CycleID: s.Cycle.ID, Mode: s.Cycle.Mode, Media: ev.Media}}, nil

	case Submitted:
		if err := expect(s, PhaseSubmitting, ev.CycleID); err != nil {
			return s, nil, err
		}
		if ev.Err != nil {
			s.Phase = PhaseError
			s.Failure = &Failure{Kind: FailNetwork, Message: NetworkMessage, Err: ev.Err}
			s.Alert = NetworkMessage
			return s, []Effect{Alert{Message: NetworkMessage}}, nil
		}
		res := ev.Result
		s.Phase = PhaseResult
		s.Result = &res
		return s, nil, nil

	case RetryRequested, UploadAgainRequested:
		if !s.Phase.Terminal() {
			return s, nil, fmt.Errorf("%w: reset while %s", ErrIgnored, s.Phase)
		}
		effects := releaseOf(s.Cycle.Staged)
		return NewState(s.Selector), effects, nil

	case AlertDismissed:
		if s.Alert == "" {
			return s, nil, fmt.Errorf("%w: no alert raised", ErrIgnored)
		}
		s.Alert = ""
		return s, nil, nil

	default:
		return s, nil, fmt.Errorf("%w: unknown event %T", ErrIgnored, ev)
	}
}

func expect(s State, phase Phase, cycleID string) error {
	if s.Cycle.ID == "" || cycleID != s.Cycle.ID {
		return fmt.Errorf("%w: cycle %q", ErrStale, cycleID)
	}
	if s.Phase != phase {
		return fmt.Errorf("%w: expected %s, in %s", ErrStale, phase, s.Phase)
	}
	return nil
}

func releaseOf(m *stage.Media) []Effect {
	if m == nil {
		return nil
	}
	return []Effect{Release{Media: m}}
}

func validationMessage(err error) string {
	var verr *media.ValidationError
	if errors.As(err, &verr) {
		return verr.Message()
	}
	return err.Error()
}

func stagingMessage(err error, rules media.Ruleset, mode media.Mode) string {
	formats := "Supported formats are: " + media.FormatList(rules.Allowed(mode))
	switch {
	case errors.Is(err, stage.ErrStagingStall):
		return "The file took too long to load.\n" + formats
	case errors.Is(err, stage.ErrUndecodable):
		return "The file could not be decoded.\n" + formats
	default:
		return "The file could not be opened.\n" + formats
	}
}
