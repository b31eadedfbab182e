// Package pipeline turns a trash photo into sanitized recycling advice.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/llm"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/sanitize"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/vision"
)

// DefaultManualLabel is offered to the user when nothing was detected with confidence.
const DefaultManualLabel = "General mixed waste"

// Pipeline is safe for concurrent use; it holds no per-run state.
type Pipeline struct {
	detector vision.Detector
	advisor  llm.Advisor
	observer Observer
}

type Option func(*Pipeline)

// WithObserver registers an observer for state transitions.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

func New(detector vision.Detector, advisor llm.Advisor, opts ...Option) *Pipeline {
	p := &Pipeline{detector: detector, advisor: advisor}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a run that did not fail.
type Result struct {
	RunID       string
	State       State // StateDone or StateAwaitingManualLabel
	Summary     vision.Summary
	Advice      string
	ManualLabel bool        // Summary came from the user instead of detection
	Pending     *PendingRun // Set only when State is StateAwaitingManualLabel
}

// PendingRun is a run suspended until the user names the items manually.
type PendingRun struct {
	p       *Pipeline
	runID   string
	resumed atomic.Bool
}

func (r *PendingRun) RunID() string { return r.runID }

// Resume continues the run with label as the detected-items summary. It can
// succeed only once; later calls return ErrAlreadyResumed. A blank label
// returns ErrEmptyLabel and leaves the run pending.
func (r *PendingRun) Resume(ctx context.Context, label string) (*Result, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	if !r.resumed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyResumed
	}

	t := newRun(ctx, r.p, r.runID, StateAwaitingManualLabel)
	return t.guard(func() (*Result, error) {
		return t.advise(ctx, vision.ManualSummary(label), true)
	})
}

// Run processes one image. When nothing is detected with enough confidence the
// returned result is pending and must be resumed with a manual label.
func (p *Pipeline) Run(ctx context.Context, img image.Image) (*Result, error) {
	t := newRun(ctx, p, uuid.NewString(), StateIdle)
	return t.guard(func() (*Result, error) {
		if img == nil {
			return nil, t.fail(StateProcessingError, StageProcessing, ErrNoImage)
		}
		t.to(StateImageReceived)

		t.to(StateDetecting)
		detections, err := p.detector.Detect(ctx, img)
		if err != nil {
			return nil, t.fail(StateDetectionError, StageDetection, err)
		}

		summary := vision.Summarize(detections)
		if summary.LowConfidence {
			t.to(StateLowConfidence)
			t.to(StateAwaitingManualLabel)
			return &Result{
				RunID:   t.id,
				State:   StateAwaitingManualLabel,
				Summary: summary,
				Pending: &PendingRun{p: p, runID: t.id},
			}, nil
		}

		t.to(StateDetectionDone)
		return t.advise(ctx, summary, false)
	})
}

type runObserverKey struct{}

// WithRunObserver returns a context under which Run and Resume also report
// their transitions to o.
func WithRunObserver(ctx context.Context, o Observer) context.Context {
	return context.WithValue(ctx, runObserverKey{}, o)
}

// run tracks the state of a single run.
type run struct {
	p        *Pipeline
	id       string
	state    State
	observer Observer
}

func newRun(ctx context.Context, p *Pipeline, id string, state State) *run {
	o, _ := ctx.Value(runObserverKey{}).(Observer)
	return &run{p: p, id: id, state: state, observer: o}
}

func (t *run) to(next State) {
	from := t.state
	t.state = next
	log.Debug().Str("runID", t.id).Str("from", from.String()).Str("state", next.String()).Msg("pipeline transition")
	if t.p.observer != nil {
		t.p.observer.Transition(t.id, from, next)
	}
	if t.observer != nil {
		t.observer.Transition(t.id, from, next)
	}
}

func (t *run) fail(state State, stage Stage, err error) error {
	t.to(state)
	log.Warn().Err(err).Str("runID", t.id).Str("stage", string(stage)).Msg("pipeline run failed")
	return &Error{Stage: stage, RunID: t.id, Err: err}
}

func (t *run) advise(ctx context.Context, summary vision.Summary, manual bool) (*Result, error) {
	t.to(StateGeneratingAdvice)
	raw, err := t.p.advisor.Advise(ctx, summary.Text)
	if err != nil {
		return nil, t.fail(StateAdviceError, StageAdvice, err)
	}

	t.to(StateSanitizing)
	advice := sanitize.Advice(raw)

	t.to(StateDone)
	return &Result{
		RunID:       t.id,
		State:       StateDone,
		Summary:     summary,
		Advice:      advice,
		ManualLabel: manual,
	}, nil
}

// guard converts a panic inside fn into a processing error.
func (t *run) guard(fn func() (*Result, error)) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("runID", t.id).
				Str("state", t.state.String()).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic in pipeline run")
			res = nil
			err = t.fail(StateProcessingError, StageProcessing, fmt.Errorf("unexpected failure: %v", r))
		}
	}()
	return fn()
}
