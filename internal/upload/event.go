package upload

import (
	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/stage"
)

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// ModeSelected switches the active mode. Accepted in every phase.
type ModeSelected struct{ Mode media.Mode }

// FileSelected starts a cycle. Accepted only in PhaseIdle.
type FileSelected struct{ File media.Candidate }

// Validated carries the validator's verdict; Err is nil when the file is
// accepted.
type Validated struct {
	CycleID string
	Err     error
}

// Staged reports that staging finished.
type Staged struct {
	CycleID string
	Media   *stage.Media
	Err     error
}

// Submitted carries the classifier's answer.
type Submitted struct {
	CycleID string
	Result  inference.Result
	Err     error
}

type RetryRequested struct{}

type UploadAgainRequested struct{}

type AlertDismissed struct{}

func (ModeSelected) eventName() string         { return "mode_selected" }
func (FileSelected) eventName() string         { return "file_selected" }
func (Validated) eventName() string            { return "validated" }
func (Staged) eventName() string               { return "staged" }
func (Submitted) eventName() string            { return "submitted" }
func (RetryRequested) eventName() string       { return "retry_requested" }
func (UploadAgainRequested) eventName() string { return "upload_again_requested" }
func (AlertDismissed) eventName() string       { return "alert_dismissed" }

// EventName is the stable log name of ev.
func EventName(ev Event) string {
	if ev == nil {
		return "none"
	}
	return ev.eventName()
}

// Effect is work a transition asks the interpreter to perform.
type Effect interface {
	effectName() string
}

// Validate checks File against Rules; it answers with Validated.
type Validate struct {
	CycleID string
	File    media.Candidate
	Mode    media.Mode
	Rules   media.Ruleset
}

// Stage prepares File; it answers with Staged.
type Stage struct {
	CycleID string
	File    media.Candidate
	Mode    media.Mode
}

// Submit sends Media to the classifier; it answers with Submitted.
type Submit struct {
	CycleID string
	Mode    media.Mode
	Media   *stage.Media
}

// Release revokes a staged handle. It has no answer.
type Release struct{ Media *stage.Media }

// Alert raises Message to the user. It has no answer.
type Alert struct{ Message string }

func (Validate) effectName() string { return "validate" }
func (Stage) effectName() string    { return "stage" }
func (Submit) effectName() string   { return "submit" }
func (Release) effectName() string  { return "release" }
func (Alert) effectName() string    { return "alert" }

// EffectName is the stable log name of eff.
func EffectName(eff Effect) string {
	if eff == nil {
		return "none"
	}
	return eff.effectName()
}
