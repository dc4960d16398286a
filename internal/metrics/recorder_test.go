package metrics

import (
	"testing"
	"time"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncGateDecision(true)
	r.ObservePassDuration("api", time.Millisecond, true)
	r.ObserveRunDuration(time.Millisecond)
	r.IncRunOutcome(OutcomeSuccess)
	r.IncConfRender(true)
	r.SetMissingProjects(0)
}
