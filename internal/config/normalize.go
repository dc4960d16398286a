package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docprep/internal/extract"
)

// NormalizationResult captures adjustments and warnings from the normalization pass.
type NormalizationResult struct{ Warnings []string }

// Log reports each warning at warn level.
func (r *NormalizationResult) Log() {
	if r == nil {
		return
	}
	for _, w := range r.Warnings {
		slog.Warn("config normalization: " + w)
	}
}

// CopyrightYearAuto asks for the HEAD commit year.
const CopyrightYearAuto = "auto"

var yearRe = regexp.MustCompile(`^\d{4}$`)

// NormalizeConfig trims free-form strings and case-folds enumerations in
// place, before defaults are applied.
func NormalizeConfig(c *Config) *NormalizationResult {
	res := &NormalizationResult{}
	if c == nil {
		return res
	}
	c.Version = strings.TrimSpace(c.Version)
	c.DocsDir = strings.TrimSpace(c.DocsDir)
	normalizeProject(&c.Project, res)
	c.Breathe.DefaultProject = strings.TrimSpace(c.Breathe.DefaultProject)
	c.HTML.Theme = strings.TrimSpace(c.HTML.Theme)
	normalizeExtract(&c.Extract, res)
	normalizeLogging(&c.Logging, res)
	return res
}

func normalizeProject(p *ProjectConfig, res *NormalizationResult) {
	p.Name = strings.TrimSpace(p.Name)
	p.Copyright = strings.TrimSpace(p.Copyright)
	p.Author = strings.TrimSpace(p.Author)
	p.Release = strings.TrimSpace(p.Release)
	p.ReleaseFromHeader = strings.TrimSpace(p.ReleaseFromHeader)

	year := strings.ToLower(strings.TrimSpace(p.CopyrightYear))
	switch {
	case year == "" || year == CopyrightYearAuto || yearRe.MatchString(year):
		if year != p.CopyrightYear {
			res.Warnings = append(res.Warnings, warnChanged("project.copyright_year", p.CopyrightYear, year))
		}
		p.CopyrightYear = year
	default:
		res.Warnings = append(res.Warnings, warnUnknown("project.copyright_year", p.CopyrightYear, "keeping copyright as written"))
		p.CopyrightYear = ""
	}
}

func normalizeExtract(e *ExtractConfig, res *NormalizationResult) {
	e.GateVariable = strings.TrimSpace(e.GateVariable)
	for i := range e.Passes {
		e.Passes[i].Name = strings.TrimSpace(e.Passes[i].Name)
		e.Passes[i].Command = strings.TrimSpace(e.Passes[i].Command)
		e.Passes[i].Dir = strings.TrimSpace(e.Passes[i].Dir)
	}
	if strings.TrimSpace(e.Policy) == "" {
		e.Policy = ""
		return
	}
	p, err := extract.ParsePolicy(e.Policy)
	if err != nil {
		res.Warnings = append(res.Warnings, warnUnknown("extract.policy", e.Policy, string(extract.PolicyWarn)))
		e.Policy = string(extract.PolicyWarn)
		return
	}
	if string(p) != e.Policy {
		res.Warnings = append(res.Warnings, warnChanged("extract.policy", e.Policy, p))
	}
	e.Policy = string(p)
}

func normalizeLogging(l *LoggingConfig, res *NormalizationResult) {
	if raw := strings.TrimSpace(string(l.Level)); raw != "" {
		lvl := NormalizeLogLevel(raw)
		if _, err := logLevelNormalizer.NormalizeWithError(raw); err != nil {
			res.Warnings = append(res.Warnings, warnUnknown("logging.level", string(l.Level), string(LogLevelInfo)))
		} else if lvl != l.Level {
			res.Warnings = append(res.Warnings, warnChanged("logging.level", l.Level, lvl))
		}
		l.Level = lvl
	}
	if raw := strings.TrimSpace(string(l.Format)); raw != "" {
		f := NormalizeLogFormat(raw)
		if _, err := logFormatNormalizer.NormalizeWithError(raw); err != nil {
			res.Warnings = append(res.Warnings, warnUnknown("logging.format", string(l.Format), string(LogFormatText)))
		} else if f != l.Format {
			res.Warnings = append(res.Warnings, warnChanged("logging.format", l.Format, f))
		}
		l.Format = f
	}
	if l.MaxSizeMB < 0 {
		l.MaxSizeMB = 0
	}
	if l.MaxBackups < 0 {
		l.MaxBackups = 0
	}
	if l.MaxAgeDays < 0 {
		l.MaxAgeDays = 0
	}
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
