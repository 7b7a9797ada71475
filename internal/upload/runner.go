package upload

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/observe"
	"github.com/jask/realcheck/internal/stage"
)

// Stager prepares an accepted file. *stage.Stager implements it.
type Stager interface {
	Stage(ctx context.Context, file media.Candidate, mode media.Mode) (*stage.Media, error)
}

// Submitter sends staged media to the classifier. *inference.Client
// implements it.
type Submitter interface {
	Submit(ctx context.Context, mode media.Mode, m *stage.Media) (inference.Result, error)
}

// Runner interprets effects against the collaborators and logs every
// transition.
type Runner struct {
	Stager    Stager
	Submitter Submitter
	Metrics   *observe.Metrics
}

// Apply runs Transition and logs the outcome. Ignored and stale events leave
// the state unchanged; any release they require is still returned.
func (r *Runner) Apply(ctx context.Context, s State, ev Event) (State, []Effect) {
	log := zerolog.Ctx(ctx)
	next, effects, err := Transition(s, ev)
	if err != nil {
		log.Debug().Err(err).
			Str("cycle", s.Cycle.ID).
			Str("phase", s.Phase.String()).
			Str("event", EventName(ev)).
			Msg("event dropped")
		return next, effects
	}
	if next.Phase != s.Phase {
		cycle := next.Cycle.ID
		if cycle == "" {
			cycle = s.Cycle.ID
		}
		log.Info().
			Str("cycle", cycle).
			Str("from", s.Phase.String()).
			Str("to", next.Phase.String()).
			Str("event", EventName(ev)).
			Msg("transition")
	}
	if next.Phase.Terminal() && !s.Phase.Terminal() {
		outcome := "result"
		if next.Failure != nil {
			outcome = next.Failure.Kind.String()
		}
		r.Metrics.RecordCycle(ctx, next.Cycle.Mode.String(), outcome)
	}
	return next, effects
}

// Execute performs eff and returns the event it produces, or nil.
func (r *Runner) Execute(ctx context.Context, eff Effect) Event {
	log := zerolog.Ctx(ctx)
	switch eff := eff.(type) {
	case Validate:
		return Validated{CycleID: eff.CycleID, Err: eff.Rules.Validate(eff.File, eff.Mode)}

	case Stage:
		start := time.Now()
		m, err := r.Stager.Stage(ctx, eff.File, eff.Mode)
		r.Metrics.RecordStaging(ctx, eff.Mode.String(), stagingStatus(err), time.Since(start))
		if err != nil {
			log.Warn().Err(err).Str("cycle", eff.CycleID).Str("file", eff.File.Path).Msg("staging failed")
		}
		return Staged{CycleID: eff.CycleID, Media: m, Err: err}

	case Submit:
		res, err := r.Submitter.Submit(ctx, eff.Mode, eff.Media)
		return Submitted{CycleID: eff.CycleID, Result: res, Err: err}

	case Release:
		if err := eff.Media.Release(); err != nil {
			log.Warn().Err(err).Str("media", eff.Media.ID).Msg("release staged media")
		}
		return nil

	case Alert:
		log.Warn().Str("alert", eff.Message).Msg("alert raised")
		return nil

	default:
		log.Error().Str("effect", EffectName(eff)).Msg("unknown effect")
		return nil
	}
}

func stagingStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, stage.ErrStagingStall):
		return "stall"
	case errors.Is(err, stage.ErrUndecodable):
		return "undecodable"
	default:
		return "error"
	}
}

// Drive feeds ev into s and keeps executing effects until none remain. It
// returns the final state and the phases visited, starting with s.Phase.
func (r *Runner) Drive(ctx context.Context, s State, ev Event) (State, []Phase) {
	phases := []Phase{s.Phase}
	queue := []Event{ev}
	for len(queue) > 0 {
		next, effects := r.Apply(ctx, s, queue[0])
		queue = queue[1:]
		if next.Phase != s.Phase {
			phases = append(phases, next.Phase)
		}
		s = next
		for _, eff := range effects {
			if out := r.Execute(ctx, eff); out != nil {
				queue = append(queue, out)
			}
		}
	}
	return s, phases
}
