package metrics

import "time"

// Outcome labels the end state of a preparation run.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"  // gate closed, nothing extracted
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded" // finished, with tolerated failures
	OutcomeFailed   Outcome = "failed"
)

// Recorder defines observability hooks for extraction and rendering.
type Recorder interface {
	IncGateDecision(open bool)
	ObservePassDuration(pass string, d time.Duration, success bool)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome Outcome)
	IncConfRender(changed bool)
	SetMissingProjects(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncGateDecision(bool)                           {}
func (NoopRecorder) ObservePassDuration(string, time.Duration, bool) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)               {}
func (NoopRecorder) IncRunOutcome(Outcome)                          {}
func (NoopRecorder) IncConfRender(bool)                             {}
func (NoopRecorder) SetMissingProjects(int)                         {}
