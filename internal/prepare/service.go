package prepare

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"git.home.luguber.info/inful/docprep/internal/apiversion"
	"git.home.luguber.info/inful/docprep/internal/config"
	"git.home.luguber.info/inful/docprep/internal/extract"
	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/gitinfo"
	"git.home.luguber.info/inful/docprep/internal/history"
	"git.home.luguber.info/inful/docprep/internal/logfields"
	"git.home.luguber.info/inful/docprep/internal/metrics"
	"git.home.luguber.info/inful/docprep/internal/notify"
	"git.home.luguber.info/inful/docprep/internal/preflight"
	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

// Options wires a Service. Only Config is required.
type Options struct {
	Config    *config.Config
	Executor  extract.Executor
	Lookup    extract.LookupFunc
	Recorder  metrics.Recorder
	History   history.Store
	Publisher notify.Publisher
}

// Request selects what a run does.
type Request struct {
	// Force runs the passes even when the gate is closed.
	Force bool
	// SkipExtract only renders conf.py.
	SkipExtract bool
	// DryRun renders conf.py into the report without touching disk or history.
	DryRun bool
}

// Report describes a finished run.
type Report struct {
	RunID         string
	Outcome       metrics.Outcome
	Release       string
	ReleaseSource string
	Copyright     string
	Record        *sphinx.Record
	Extract       *extract.Result
	Preflight     *preflight.Report
	ConfPath      string
	ConfPy        []byte
	Changed       bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Service runs preparations. Prepare calls are serialised.
type Service struct {
	cfg       *config.Config
	executor  extract.Executor
	lookup    extract.LookupFunc
	recorder  metrics.Recorder
	history   history.Store
	publisher notify.Publisher

	mu sync.Mutex
}

// NewService creates a Service from opts.
func NewService(opts Options) *Service {
	s := &Service{
		cfg:       opts.Config,
		executor:  opts.Executor,
		lookup:    opts.Lookup,
		recorder:  opts.Recorder,
		history:   opts.History,
		publisher: opts.Publisher,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.executor == nil {
		s.executor = &extract.OSExecutor{}
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	if s.publisher == nil {
		s.publisher = notify.NoopPublisher{}
	}
	return s
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config { return s.cfg }

// Resolved is the record together with where release came from.
type Resolved struct {
	Record        *sphinx.Record
	ReleaseSource string
}

// Resolve builds the conf.py record, reading the version header and git
// history when the configuration asks for them.
func (s *Service) Resolve(ctx context.Context) (*Resolved, error) {
	f := s.cfg.Fields()
	source := "config"

	if f.Release == "" && s.cfg.Project.ReleaseFromHeader != "" {
		path := s.cfg.Resolve(s.cfg.Project.ReleaseFromHeader)
		v, err := apiversion.ParseFile(path)
		if err != nil {
			return nil, err
		}
		f.Release = v.Release()
		source = "header"
		slog.Debug("Release read from version header", logfields.Path(path), slog.String("version", v.String()))
	}

	switch year := s.cfg.Project.CopyrightYear; {
	case year == config.CopyrightYearAuto:
		y, err := gitinfo.CommitYear(s.cfg.DocsPath())
		if err != nil {
			slog.Warn("Keeping configured copyright year", logfields.Error(err))
			break
		}
		f.Copyright = gitinfo.WithYear(f.Copyright, y)
	case year != "":
		if y, err := strconv.Atoi(year); err == nil {
			f.Copyright = gitinfo.WithYear(f.Copyright, y)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "preparation interrupted").Build()
	}
	rec, err := sphinx.New(f)
	if err != nil {
		return nil, err
	}
	return &Resolved{Record: rec, ReleaseSource: source}, nil
}

func (s *Service) extractor() *extract.Extractor {
	return extract.New(extract.Options{
		Gate:     s.cfg.Gate(),
		Passes:   s.cfg.Passes(),
		DocsDir:  s.cfg.DocsPath(),
		Policy:   s.cfg.Policy(),
		Timeout:  s.cfg.ExtractTimeout(),
		Executor: s.executor,
		Recorder: s.recorder,
	})
}

// Extract runs only the extraction stage. It does not touch conf.py or history.
func (s *Service) Extract(ctx context.Context, force bool) (*extract.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex := s.extractor()
	if force {
		return ex.Force(ctx)
	}
	return ex.Run(ctx, s.lookup)
}

// RenderOptions is the conf.py layout for this configuration.
func (s *Service) RenderOptions() sphinx.RenderOptions {
	opts := sphinx.RenderOptions{Banner: s.cfg.Output.Banner}
	if s.cfg.EmbedGate() {
		opts.Gate = extract.Preamble(s.cfg.Gate(), s.cfg.Passes())
	}
	return opts
}
