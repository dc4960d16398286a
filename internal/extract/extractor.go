package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/foundation/normalization"
	"git.home.luguber.info/inful/docprep/internal/logfields"
	"git.home.luguber.info/inful/docprep/internal/metrics"
)

// Policy decides what a failed pass means for the run.
type Policy string

const (
	// PolicyIgnore drops failures; missing XML surfaces later in Sphinx.
	PolicyIgnore Policy = "ignore"
	// PolicyWarn logs failures and keeps going.
	PolicyWarn Policy = "warn"
	// PolicyStrict stops at the first failure and returns it.
	PolicyStrict Policy = "strict"
)

var policyNormalizer = normalization.NewNormalizer(map[string]Policy{
	"ignore": PolicyIgnore,
	"warn":   PolicyWarn,
	"strict": PolicyStrict,
}, PolicyWarn)

// NormalizePolicy maps config spellings to a Policy, defaulting to warn.
func NormalizePolicy(raw string) Policy {
	return policyNormalizer.Normalize(raw)
}

// ParsePolicy is NormalizePolicy that rejects unknown values.
func ParsePolicy(raw string) (Policy, error) {
	return policyNormalizer.NormalizeWithError(raw)
}

// outputTailBytes bounds how much tool output is kept per pass.
const outputTailBytes = 4096

// Options configures an Extractor. Zero values fall back to defaults.
type Options struct {
	Gate     Gate
	Passes   []Pass
	DocsDir  string
	Policy   Policy
	Timeout  time.Duration
	Executor Executor
	Recorder metrics.Recorder
}

// Extractor runs the gated extraction passes.
type Extractor struct {
	gate     Gate
	passes   []Pass
	docsDir  string
	policy   Policy
	timeout  time.Duration
	executor Executor
	recorder metrics.Recorder
}

// New creates an Extractor from opts.
func New(opts Options) *Extractor {
	e := &Extractor{
		gate:     opts.Gate,
		passes:   append([]Pass(nil), opts.Passes...),
		docsDir:  opts.DocsDir,
		policy:   opts.Policy,
		timeout:  opts.Timeout,
		executor: opts.Executor,
		recorder: opts.Recorder,
	}
	if e.gate.Variable == "" {
		e.gate = DefaultGate()
	}
	if opts.Passes == nil {
		e.passes = DefaultPasses()
	}
	if e.docsDir == "" {
		e.docsDir = "."
	}
	if e.policy == "" {
		e.policy = PolicyWarn
	}
	if e.executor == nil {
		e.executor = &OSExecutor{}
	}
	if e.recorder == nil {
		e.recorder = metrics.NoopRecorder{}
	}
	return e
}

// Gate returns the configured gate.
func (e *Extractor) Gate() Gate { return e.gate }

// Passes returns a copy of the configured passes.
func (e *Extractor) Passes() []Pass { return append([]Pass(nil), e.passes...) }

// PassResult is the outcome of one pass.
type PassResult struct {
	Pass     Pass
	Dir      string
	Argv     []string
	Duration time.Duration
	Output   string
	Err      error
}

// OK reports whether the pass succeeded.
func (p PassResult) OK() bool { return p.Err == nil }

// Result summarises one Run.
type Result struct {
	RunID      string
	GateOpen   bool
	Forced     bool
	Policy     Policy
	Passes     []PassResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Skipped reports whether the gate kept the passes from running.
func (r *Result) Skipped() bool { return !r.GateOpen && !r.Forced }

// Failed counts failed passes.
func (r *Result) Failed() int {
	n := 0
	for _, p := range r.Passes {
		if !p.OK() {
			n++
		}
	}
	return n
}

// Run evaluates the gate and, when open, runs every pass in order. Passes
// block until the tool exits; there is no timeout unless Options.Timeout is set.
func (e *Extractor) Run(ctx context.Context, lookup LookupFunc) (*Result, error) {
	open := e.gate.Open(lookup)
	e.recorder.IncGateDecision(open)
	res := &Result{
		RunID:     uuid.NewString(),
		GateOpen:  open,
		Policy:    e.policy,
		StartedAt: time.Now(),
	}
	if !open {
		slog.Debug("Extraction gate closed, skipping passes",
			logfields.RunID(res.RunID),
			slog.String("variable", e.gate.Variable))
		res.FinishedAt = time.Now()
		return res, nil
	}
	err := e.runPasses(ctx, res)
	return res, err
}

// Force runs every pass regardless of the gate.
func (e *Extractor) Force(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		GateOpen:  e.gate.Open(nil),
		Forced:    true,
		Policy:    e.policy,
		StartedAt: time.Now(),
	}
	err := e.runPasses(ctx, res)
	return res, err
}

func (e *Extractor) runPasses(ctx context.Context, res *Result) error {
	defer func() { res.FinishedAt = time.Now() }()

	slog.Info("Running extraction passes",
		logfields.RunID(res.RunID),
		logfields.Policy(string(e.policy)),
		slog.Int("passes", len(e.passes)))

	for _, pass := range e.passes {
		if err := ctx.Err(); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "extraction interrupted").
				WithContext("pass", pass.Name).Build()
		}
		pr := e.runPass(ctx, pass)
		res.Passes = append(res.Passes, pr)
		e.recorder.ObservePassDuration(pass.Name, pr.Duration, pr.OK())

		if pr.OK() {
			slog.Info("Extraction pass finished",
				logfields.RunID(res.RunID),
				logfields.Pass(pass.Name),
				logfields.DurationMS(float64(pr.Duration.Milliseconds())))
			continue
		}

		switch e.policy {
		case PolicyIgnore:
			slog.Debug("Extraction pass failed (ignored)",
				logfields.RunID(res.RunID),
				logfields.Pass(pass.Name),
				logfields.Error(pr.Err))
		case PolicyStrict:
			slog.Error("Extraction pass failed",
				logfields.RunID(res.RunID),
				logfields.Pass(pass.Name),
				logfields.Error(pr.Err))
			return ferrors.WrapError(pr.Err, ferrors.CategoryExtract, fmt.Sprintf("extraction pass %q failed", pass.Name)).
				WithContext("command", pass.Command).
				WithContext("dir", pr.Dir).
				WithContext("output", pr.Output).
				Build()
		default:
			slog.Warn("Extraction pass failed, continuing",
				logfields.RunID(res.RunID),
				logfields.Pass(pass.Name),
				logfields.Dir(pr.Dir),
				logfields.Error(pr.Err),
				slog.String("output_tail", lastLine(pr.Output)))
		}
	}
	return nil
}

func (e *Extractor) runPass(ctx context.Context, pass Pass) PassResult {
	pr := PassResult{Pass: pass, Dir: pass.ResolveDir(e.docsDir)}
	argv, err := pass.Argv()
	if err != nil {
		pr.Err = err
		return pr
	}
	pr.Argv = argv

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	slog.Debug("Invoking extraction tool",
		logfields.Pass(pass.Name),
		logfields.Command(pass.Command),
		logfields.Dir(pr.Dir))

	start := time.Now()
	out, err := e.executor.Run(runCtx, pr.Dir, argv[0], argv[1:]...)
	pr.Duration = time.Since(start)
	pr.Output = tail(out, outputTailBytes)
	if err != nil && runCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s: %w", e.timeout, err)
	}
	pr.Err = err
	return pr
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
