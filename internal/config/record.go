package config

import (
	"maps"
	"slices"
	"time"

	"git.home.luguber.info/inful/docprep/internal/extract"
	"git.home.luguber.info/inful/docprep/internal/retry"
	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

// Fields maps the configuration onto conf.py options. Release and
// copyright are taken as written; header and git lookups happen at run time.
func (c *Config) Fields() sphinx.Fields {
	return sphinx.Fields{
		Project:               c.Project.Name,
		Copyright:             c.Project.Copyright,
		Author:                c.Project.Author,
		Release:               c.Project.Release,
		Extensions:            slices.Clone(c.Sphinx.Extensions),
		TemplatesPath:         slices.Clone(c.Sphinx.TemplatesPath),
		ExcludePatterns:       slices.Clone(c.Sphinx.ExcludePatterns),
		BreatheProjects:       maps.Clone(c.Breathe.Projects),
		BreatheDefaultProject: c.Breathe.DefaultProject,
		HTMLTheme:             c.HTML.Theme,
		HTMLStaticPath:        slices.Clone(c.HTML.StaticPath),
		HTMLTitle:             c.HTML.Title,
		HTMLThemeOptions:      maps.Clone(c.HTML.ThemeOptions),
	}
}

func extractPass(p PassConfig) extract.Pass {
	return extract.Pass{Name: p.Name, Command: p.Command, Dir: p.Dir}
}

// Gate is the configured extraction gate.
func (c *Config) Gate() extract.Gate {
	return extract.Gate{Variable: c.Extract.GateVariable, Sentinel: c.Extract.GateSentinel}
}

// Passes converts the configured passes. An explicit empty list stays empty.
func (c *Config) Passes() []extract.Pass {
	out := make([]extract.Pass, 0, len(c.Extract.Passes))
	for _, p := range c.Extract.Passes {
		out = append(out, extractPass(p))
	}
	return out
}

// Policy is the normalized failure policy.
func (c *Config) Policy() extract.Policy {
	return extract.NormalizePolicy(c.Extract.Policy)
}

// ExtractTimeout is the per-pass timeout, zero when unset.
func (c *Config) ExtractTimeout() time.Duration { return parseDuration(c.Extract.Timeout) }

// WatchDebounce is the quiet period before a watch-triggered run.
func (c *Config) WatchDebounce() time.Duration { return parseDuration(c.Watch.Debounce) }

// WatchRefresh is the periodic refresh interval, zero when disabled.
func (c *Config) WatchRefresh() time.Duration { return parseDuration(c.Watch.Refresh) }

// NotifyTimeout bounds connecting and flushing to NATS.
func (c *Config) NotifyTimeout() time.Duration { return parseDuration(c.Notify.Timeout) }

// NotifyRetry is the publish retry policy.
func (c *Config) NotifyRetry() retry.Policy {
	retries := -1
	if c.Notify.Retries != nil {
		retries = *c.Notify.Retries
	}
	return retry.NewPolicy(retry.Mode(c.Notify.Backoff), parseDuration(c.Notify.RetryDelay), parseDuration(c.Notify.RetryMax), retries)
}

// EmbedGate reports whether conf.py should carry the extraction preamble.
func (c *Config) EmbedGate() bool { return c.Extract.EmbedGate == nil || *c.Extract.EmbedGate }

// PreflightEnabled reports whether breathe directories are checked.
func (c *Config) PreflightEnabled() bool { return c.Extract.Preflight == nil || *c.Extract.Preflight }

// WatchPaths resolves the watched paths against BaseDir.
func (c *Config) WatchPaths() []string {
	out := make([]string, 0, len(c.Watch.Paths))
	for _, p := range c.Watch.Paths {
		out = append(out, c.Resolve(p))
	}
	return out
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
