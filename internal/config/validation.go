package config

import (
	"fmt"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/retry"
	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

// Validate checks a normalized, defaulted configuration. Every problem is
// collected before returning so users can fix the file in one pass.
func Validate(c *Config) error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	seen := make(map[string]bool, len(c.Extract.Passes))
	for i, p := range c.Extract.Passes {
		switch {
		case p.Name == "":
			add("extract.passes[%d]: name is required", i)
		case seen[p.Name]:
			add("extract.passes[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Command == "" {
			add("extract.passes[%d]: command is required", i)
		} else if _, err := (extractPass(p)).Argv(); err != nil {
			add("extract.passes[%d]: %v", i, err)
		}
	}
	if c.Extract.GateSentinel != "" && c.Extract.GateVariable == "" {
		add("extract.gate_variable is required when gate_sentinel is set")
	}

	checkDuration := func(field, v string, allowEmpty bool) {
		if v == "" {
			if !allowEmpty {
				add("%s is required", field)
			}
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			add("%s: %v", field, err)
			return
		}
		if d < 0 {
			add("%s must not be negative", field)
		}
	}
	checkDuration("extract.timeout", c.Extract.Timeout, true)
	checkDuration("watch.debounce", c.Watch.Debounce, false)
	checkDuration("watch.refresh", c.Watch.Refresh, true)
	checkDuration("notify.timeout", c.Notify.Timeout, false)

	checkDuration("notify.retry_delay", c.Notify.RetryDelay, true)
	checkDuration("notify.retry_max", c.Notify.RetryMax, true)
	if c.Notify.Backoff != "" {
		if _, err := retry.ParseMode(c.Notify.Backoff); err != nil {
			add("notify.backoff: %v", err)
		}
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		add("notify.retries must not be negative")
	}
	if c.Notify.Enabled && c.Notify.URL == "" {
		add("notify.url is required when notify is enabled")
	}
	if c.History.Keep < 0 {
		add("history.keep must not be negative")
	}

	if len(problems) > 0 {
		return ferrors.ConfigError("invalid configuration: "+strings.Join(problems, "; ")).
			WithContext("problems", len(problems)).Build()
	}

	// Release and copyright may still change at run time; their shape does not.
	if _, err := sphinx.New(c.Fields()); err != nil {
		return err
	}
	return nil
}
