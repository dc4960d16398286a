package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/preflight"
	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

// ShowCmd implements the 'show' command.
type ShowCmd struct {
	Format string `short:"f" help:"Output format (yaml, json, python)" enum:"yaml,json,python" default:"yaml"`
	Key    string `short:"k" help:"Print a single conf.py option"`
}

func (s *ShowCmd) Run(g *Global, root *CLI) error {
	cfg, err := setup(g, root)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	resolved, err := rt.service().Resolve(context.Background())
	if err != nil {
		return err
	}
	rec := resolved.Record

	if s.Key != "" {
		v, ok := rec.Lookup(s.Key)
		if !ok {
			return ferrors.ValidationError("unknown conf.py option").
				WithContext("key", s.Key).
				WithContext("known", strings.Join(sphinx.Keys(), ", ")).
				Build()
		}
		if str, ok := v.(string); ok {
			_, _ = fmt.Fprintln(g.out(), str)
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(g.out(), string(data))
		return nil
	}

	out, err := rec.Marshal(sphinx.Format(s.Format))
	if err != nil {
		return err
	}
	_, err = g.out().Write(out)
	return err
}

// CheckCmd implements the 'check' command.
type CheckCmd struct{}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := setup(g, root)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	resolved, err := rt.service().Resolve(context.Background())
	if err != nil {
		return err
	}
	w := g.out()
	_, _ = fmt.Fprintf(w, "configuration ok (release %s from %s)\n", resolved.Record.Release(), resolved.ReleaseSource)

	report, err := preflight.Check(cfg.DocsPath(), resolved.Record.BreatheProjects())
	if err != nil {
		return err
	}
	for _, p := range report.Projects {
		_, _ = fmt.Fprintf(w, "%-12s %-10s %s\n", p.Status, p.Name, p.Resolved)
	}
	return report.Err()
}
