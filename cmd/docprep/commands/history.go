package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of runs to show (0 for all)" default:"20"`
	JSON  bool `help:"Print runs as JSON"`
}

type historyRun struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	DurationMS  int64                 `json:"duration_ms"`
	Outcome     string                `json:"outcome"`
	GateOpen    bool                  `json:"gate_open"`
	Forced      bool                  `json:"forced"`
	Policy      string                `json:"policy"`
	Release     string                `json:"release"`
	ConfPath    string                `json:"conf_path"`
	ConfChanged bool                  `json:"conf_changed"`
	Passes      []history.PassSummary `json:"passes"`
	Error       string                `json:"error,omitempty"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := setup(g, root)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return ferrors.ConfigError("run history is disabled (set history.enabled)").Build()
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	runs, err := rt.store.List(context.Background(), h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		out := make([]historyRun, 0, len(runs))
		for _, r := range runs {
			out = append(out, historyRun{
				RunID:       r.RunID,
				StartedAt:   r.StartedAt,
				DurationMS:  r.Duration().Milliseconds(),
				Outcome:     r.Outcome,
				GateOpen:    r.GateOpen,
				Forced:      r.Forced,
				Policy:      r.Policy,
				Release:     r.Release,
				ConfPath:    r.ConfPath,
				ConfChanged: r.ConfChanged,
				Passes:      r.Passes,
				Error:       r.Error,
			})
		}
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tOUTCOME\tGATE\tPASSES\tRELEASE\tDURATION")
	for _, r := range runs {
		failed := 0
		for _, p := range r.Passes {
			if !p.OK {
				failed++
			}
		}
		gate := "closed"
		switch {
		case r.Forced:
			gate = "forced"
		case r.GateOpen:
			gate = "open"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Outcome,
			gate,
			len(r.Passes)-failed, len(r.Passes),
			r.Release,
			r.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}
