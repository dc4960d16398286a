package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docprep/internal/extract"
	"git.home.luguber.info/inful/docprep/internal/prepare"
)

// PrepareCmd implements the default 'prepare' command.
type PrepareCmd struct {
	Force       bool `help:"Run extraction even when the gate variable is not set"`
	SkipExtract bool `name:"skip-extract" help:"Do not run extraction passes"`
	DryRun      bool `name:"dry-run" help:"Print conf.py instead of writing it; nothing is recorded"`
}

func (p *PrepareCmd) Run(g *Global, root *CLI) error {
	return runPrepare(g, root, prepare.Request{Force: p.Force, SkipExtract: p.SkipExtract, DryRun: p.DryRun})
}

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct {
	Stdout bool `help:"Print conf.py instead of writing it"`
}

func (c *GenerateCmd) Run(g *Global, root *CLI) error {
	return runPrepare(g, root, prepare.Request{SkipExtract: true, DryRun: c.Stdout})
}

func runPrepare(g *Global, root *CLI, req prepare.Request) error {
	cfg, err := setup(g, root)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := rt.service().Prepare(ctx, req)
	rt.writeTextfile(cfg)
	if rep != nil {
		if req.DryRun && err == nil {
			_, _ = g.out().Write(rep.ConfPy)
		} else {
			printReport(g.out(), rep)
		}
	}
	return err
}

func printReport(w io.Writer, rep *prepare.Report) {
	if rep.Extract != nil {
		printExtract(w, rep.Extract)
	}
	if rep.Preflight != nil {
		for _, m := range rep.Preflight.Missing() {
			_, _ = fmt.Fprintf(w, "missing  %-10s %s\n", m.Name, m.Resolved)
		}
	}
	if rep.Record != nil {
		_, _ = fmt.Fprintf(w, "release  %s (%s)\n", rep.Release, rep.ReleaseSource)
	}
	state := "unchanged"
	if rep.Changed {
		state = "written"
	}
	_, _ = fmt.Fprintf(w, "conf.py  %s (%s)\n", rep.ConfPath, state)
	_, _ = fmt.Fprintf(w, "outcome  %s\n", rep.Outcome)
}

func printExtract(w io.Writer, res *extract.Result) {
	if res.Skipped() {
		_, _ = fmt.Fprintln(w, "extract  skipped (gate closed)")
		return
	}
	for _, p := range res.Passes {
		status := "ok"
		if !p.OK() {
			status = "failed: " + p.Err.Error()
		}
		_, _ = fmt.Fprintf(w, "pass     %-10s %s\n", p.Pass.Name, status)
	}
}

// ExtractCmd implements the 'extract' command.
type ExtractCmd struct {
	Force bool `help:"Run the passes even when the gate variable is not set"`
}

func (e *ExtractCmd) Run(g *Global, root *CLI) error {
	cfg, err := setup(g, root)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := rt.service().Extract(ctx, e.Force)
	rt.writeTextfile(cfg)
	if res != nil {
		printExtract(g.out(), res)
	}
	return err
}
