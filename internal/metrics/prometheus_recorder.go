package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	gateDecisions   *prom.CounterVec
	passDuration    *prom.HistogramVec
	passResults     *prom.CounterVec
	runDuration     prom.Histogram
	runOutcomes     *prom.CounterVec
	confRenders     *prom.CounterVec
	missingProjects prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		gateDecisions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docprep",
			Name:      "gate_decisions_total",
			Help:      "Extraction gate evaluations by result",
		}, []string{"open"}),
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docprep",
			Name:      "extract_pass_duration_seconds",
			Help:      "Duration of individual extraction tool invocations",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"pass", "result"}),
		passResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docprep",
			Name:      "extract_pass_results_total",
			Help:      "Extraction pass results by success/failure",
		}, []string{"pass", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docprep",
			Name:      "prepare_duration_seconds",
			Help:      "Total preparation run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docprep",
			Name:      "prepare_outcomes_total",
			Help:      "Preparation runs by final outcome",
		}, []string{"outcome"}),
		confRenders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docprep",
			Name:      "confpy_renders_total",
			Help:      "conf.py renders by whether the file content changed",
		}, []string{"changed"}),
		missingProjects: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docprep",
			Name:      "breathe_projects_missing",
			Help:      "Breathe projects without doxygen XML after the last run",
		}),
	}
	reg.MustRegister(pr.gateDecisions, pr.passDuration, pr.passResults, pr.runDuration, pr.runOutcomes, pr.confRenders, pr.missingProjects)
	return pr
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (p *PrometheusRecorder) IncGateDecision(open bool) {
	if p == nil {
		return
	}
	p.gateDecisions.WithLabelValues(boolLabel(open)).Inc()
}

func (p *PrometheusRecorder) ObservePassDuration(pass string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := resultLabel(success)
	p.passDuration.WithLabelValues(pass, res).Observe(d.Seconds())
	p.passResults.WithLabelValues(pass, res).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncConfRender(changed bool) {
	if p == nil {
		return
	}
	p.confRenders.WithLabelValues(boolLabel(changed)).Inc()
}

func (p *PrometheusRecorder) SetMissingProjects(n int) {
	if p == nil {
		return
	}
	p.missingProjects.Set(float64(n))
}
