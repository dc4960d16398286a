package prepare

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docprep/internal/extract"
	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/history"
	"git.home.luguber.info/inful/docprep/internal/logfields"
	"git.home.luguber.info/inful/docprep/internal/metrics"
	"git.home.luguber.info/inful/docprep/internal/notify"
	"git.home.luguber.info/inful/docprep/internal/preflight"
)

// Prepare runs every stage once. A non-nil error means the run failed; the
// report is still returned with whatever stages completed.
func (s *Service) Prepare(ctx context.Context, req Request) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		ConfPath:  s.cfg.ConfPyPath(),
	}
	log := slog.With(logfields.RunID(rep.RunID))

	err := s.run(ctx, req, rep, log)

	rep.FinishedAt = time.Now()
	rep.Outcome = outcome(rep, err)
	s.recorder.ObserveRunDuration(rep.FinishedAt.Sub(rep.StartedAt))
	s.recorder.IncRunOutcome(rep.Outcome)
	if !req.DryRun {
		s.recordHistory(ctx, rep, err, log)
		s.notify(ctx, rep, err, log)
	}

	if err != nil {
		log.Error("Preparation failed", logfields.Error(err))
		return rep, err
	}
	log.Info("Preparation complete",
		slog.String("outcome", string(rep.Outcome)),
		logfields.Path(rep.ConfPath),
		slog.Bool("changed", rep.Changed),
		logfields.DurationMS(float64(rep.FinishedAt.Sub(rep.StartedAt).Milliseconds())))
	return rep, nil
}

func (s *Service) run(ctx context.Context, req Request, rep *Report, log *slog.Logger) error {
	log.Debug("Stage started", logfields.Stage("resolve"))
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return err
	}
	rep.Record = resolved.Record
	rep.Release = resolved.Record.Release()
	rep.ReleaseSource = resolved.ReleaseSource
	rep.Copyright = resolved.Record.Copyright()

	if !req.SkipExtract {
		log.Debug("Stage started", logfields.Stage("extract"))
		ex := s.extractor()
		var res *extract.Result
		if req.Force {
			res, err = ex.Force(ctx)
		} else {
			res, err = ex.Run(ctx, s.lookup)
		}
		rep.Extract = res
		if err != nil {
			return err
		}
		log.Info("Extraction finished",
			logfields.Gate(res.GateOpen),
			slog.Bool("forced", res.Forced),
			slog.Int("passes", len(res.Passes)),
			slog.Int("failed", res.Failed()))
	}

	if s.cfg.PreflightEnabled() {
		log.Debug("Stage started", logfields.Stage("preflight"))
		if err := s.preflight(rep, log); err != nil {
			return err
		}
	}

	log.Debug("Stage started", logfields.Stage("render"))
	opts := s.RenderOptions()
	if opts.Gate != nil && rep.Extract != nil && rep.Extract.GateOpen {
		// Sphinx on this host would open the same gate and repeat the passes.
		opts.Gate = nil
		log.Debug("Omitting extraction preamble; passes already ran", logfields.Gate(true))
	}
	if req.DryRun {
		rep.ConfPy, err = rep.Record.ConfPy(opts)
		return err
	}
	rep.Changed, err = rep.Record.WriteConfPy(rep.ConfPath, opts)
	if err != nil {
		return err
	}
	s.recorder.IncConfRender(rep.Changed)
	return nil
}

func (s *Service) preflight(rep *Report, log *slog.Logger) error {
	pf, err := preflight.Check(s.cfg.DocsPath(), rep.Record.BreatheProjects())
	if err != nil {
		return err
	}
	rep.Preflight = pf
	missing := pf.Missing()
	s.recorder.SetMissingProjects(len(missing))
	if len(missing) == 0 {
		return nil
	}

	switch s.cfg.Policy() {
	case extract.PolicyStrict:
		return pf.Err()
	case extract.PolicyIgnore:
		for _, m := range missing {
			log.Debug("Breathe project has no XML", logfields.Project(m.Name), logfields.Path(m.Resolved))
		}
	default:
		for _, m := range missing {
			log.Warn("Breathe project has no XML; Sphinx will render it empty",
				logfields.Project(m.Name),
				logfields.Path(m.Resolved),
				slog.String("detail", m.Detail))
		}
	}
	return nil
}

func outcome(rep *Report, err error) metrics.Outcome {
	switch {
	case err != nil:
		return metrics.OutcomeFailed
	case rep.Extract != nil && rep.Extract.Failed() > 0:
		return metrics.OutcomeDegraded
	case rep.Preflight != nil && !rep.Preflight.OK():
		return metrics.OutcomeDegraded
	case rep.Extract == nil || rep.Extract.Skipped():
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeSuccess
	}
}

func (s *Service) recordHistory(ctx context.Context, rep *Report, runErr error, log *slog.Logger) {
	if s.history == nil {
		return
	}
	run := history.Run{
		RunID:       rep.RunID,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Outcome:     string(rep.Outcome),
		Policy:      string(s.cfg.Policy()),
		Release:     rep.Release,
		ConfPath:    rep.ConfPath,
		ConfChanged: rep.Changed,
	}
	if rep.Extract != nil {
		run.GateOpen = rep.Extract.GateOpen
		run.Forced = rep.Extract.Forced
		for _, p := range rep.Extract.Passes {
			ps := history.PassSummary{
				Name:       p.Pass.Name,
				Command:    p.Pass.Command,
				Dir:        p.Dir,
				DurationMS: p.Duration.Milliseconds(),
				OK:         p.OK(),
			}
			if p.Err != nil {
				ps.Error = p.Err.Error()
			}
			run.Passes = append(run.Passes, ps)
		}
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// A cancelled run is still worth recording.
	ctx = context.WithoutCancel(ctx)
	if _, err := s.history.Record(ctx, run); err != nil {
		log.Warn("Failed to record run history", logfields.Error(ferrors.WrapError(err, ferrors.CategoryHistory, "record run").Build()))
		return
	}
	if keep := s.cfg.History.Keep; keep > 0 {
		if n, err := s.history.Prune(ctx, keep); err != nil {
			log.Warn("Failed to prune run history", logfields.Error(err))
		} else if n > 0 {
			log.Debug("Pruned run history", slog.Int64("removed", n))
		}
	}
}

func (s *Service) notify(ctx context.Context, rep *Report, runErr error, log *slog.Logger) {
	e := notify.Event{
		RunID:       rep.RunID,
		Release:     rep.Release,
		Outcome:     string(rep.Outcome),
		ConfPath:    rep.ConfPath,
		ConfChanged: rep.Changed,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
	}
	if rep.Record != nil {
		e.Project = rep.Record.Project()
	}
	if rep.Extract != nil {
		e.GateOpen = rep.Extract.GateOpen
		e.Forced = rep.Extract.Forced
		for _, p := range rep.Extract.Passes {
			if !p.OK() {
				e.FailedPass = append(e.FailedPass, p.Pass.Name)
			}
		}
	}
	if rep.Preflight != nil {
		for _, m := range rep.Preflight.Missing() {
			e.Missing = append(e.Missing, m.Name)
		}
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}

	ctx = context.WithoutCancel(ctx)
	if timeout := s.cfg.NotifyTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warn("Failed to publish run notification", logfields.Error(err))
	}
}
