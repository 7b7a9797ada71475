package upload

import (
	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/stage"
)

// Display is what the user should see for a State. Exactly one of the four
// panels is visible.
type Display struct {
	ShowUpload  bool
	ShowSpinner bool
	ShowResult  bool
	ShowError   bool

	Mode media.Mode
	// Hint lists the formats accepted in the active mode.
	Hint string
	// Status captions the spinner.
	Status string

	// Label and Score are set together or not at all.
	Label string
	Score inference.Score
	// Result carries the auxiliary classifier fields when a verdict exists.
	Result *inference.Result

	FileName string
	Preview  *stage.Preview

	ErrorMessage string
	Alert        string
}

// Display derives the view of s. It has no side effects.
func (s State) Display() Display {
	d := Display{
		Mode:  s.Selector.Mode(),
		Hint:  s.Selector.Hint(),
		Alert: s.Alert,
	}
	switch s.Phase {
	case PhaseIdle:
		d.ShowUpload = true
	case PhaseValidating, PhaseStaging, PhaseSubmitting:
		d.ShowSpinner = true
		d.Status = statusLine(s.Phase)
		d.FileName = s.Cycle.File.Name
	case PhaseResult:
		d.ShowResult = true
		d.FileName = s.Cycle.File.Name
		d.Preview = previewOf(s.Cycle.Staged)
		if s.Result != nil {
			d.Label = s.Result.Label
			d.Score = s.Result.Score
			d.Result = s.Result
		}
	case PhaseError:
		if s.Failure != nil && s.Failure.Kind == FailNetwork {
			d.ShowResult = true
			d.FileName = s.Cycle.File.Name
			d.Preview = previewOf(s.Cycle.Staged)
			return d
		}
		d.ShowError = true
		if s.Failure != nil {
			d.ErrorMessage = s.Failure.Message
		}
	}
	return d
}

func statusLine(p Phase) string {
	switch p {
	case PhaseValidating:
		return "Checking file…"
	case PhaseStaging:
		return "Loading preview…"
	default:
		return "Analyzing…"
	}
}

func previewOf(m *stage.Media) *stage.Preview {
	if m == nil {
		return nil
	}
	p := m.Preview
	return &p
}
