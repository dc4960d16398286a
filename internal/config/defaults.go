package config

import (
	"maps"
	"slices"

	"git.home.luguber.info/inful/docprep/internal/extract"
	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

// Defaults used when a key is absent.
const (
	DefaultDocsDir       = "docs"
	DefaultConfPy        = "conf.py"
	DefaultHistoryPath   = ".docprep/history.db"
	DefaultNotifySubject = "docprep.runs"
	DefaultNotifyTimeout = "5s"
	DefaultWatchDebounce = "500ms"
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
	DefaultMetricsListen = ":9464"
)

// DefaultWatchPaths are the inputs that change extraction output.
var DefaultWatchPaths = []string{"include", "Doxyfile", "doxyfile_types"}

// applyDefaults fills every unset key. Lists and maps are only defaulted
// when nil, so an explicit empty list in the file is kept.
func applyDefaults(c *Config) {
	d := sphinx.DefaultFields()

	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.DocsDir == "" {
		c.DocsDir = DefaultDocsDir
	}

	if c.Project.Name == "" {
		c.Project.Name = d.Project
	}
	if c.Project.Copyright == "" {
		c.Project.Copyright = d.Copyright
	}
	if c.Project.Author == "" {
		c.Project.Author = d.Author
	}
	if c.Project.Release == "" && c.Project.ReleaseFromHeader == "" {
		c.Project.Release = d.Release
	}

	if c.Sphinx.Extensions == nil {
		c.Sphinx.Extensions = slices.Clone(d.Extensions)
	}
	if c.Sphinx.TemplatesPath == nil {
		c.Sphinx.TemplatesPath = slices.Clone(d.TemplatesPath)
	}
	if c.Sphinx.ExcludePatterns == nil {
		c.Sphinx.ExcludePatterns = slices.Clone(d.ExcludePatterns)
	}

	if c.Breathe.Projects == nil {
		c.Breathe.Projects = maps.Clone(d.BreatheProjects)
		if c.Breathe.DefaultProject == "" {
			c.Breathe.DefaultProject = d.BreatheDefaultProject
		}
	}
	if c.Breathe.DefaultProject == "" && len(c.Breathe.Projects) == 1 {
		for name := range c.Breathe.Projects {
			c.Breathe.DefaultProject = name
		}
	}

	if c.HTML.Theme == "" {
		c.HTML.Theme = d.HTMLTheme
	}
	if c.HTML.Title == "" {
		c.HTML.Title = d.HTMLTitle
	}
	if c.HTML.StaticPath == nil {
		c.HTML.StaticPath = slices.Clone(d.HTMLStaticPath)
	}
	if c.HTML.ThemeOptions == nil {
		c.HTML.ThemeOptions = maps.Clone(d.HTMLThemeOptions)
	}

	gate := extract.DefaultGate()
	if c.Extract.GateVariable == "" {
		c.Extract.GateVariable = gate.Variable
	}
	if c.Extract.GateSentinel == "" {
		c.Extract.GateSentinel = gate.Sentinel
	}
	if c.Extract.Passes == nil {
		for _, p := range extract.DefaultPasses() {
			c.Extract.Passes = append(c.Extract.Passes, PassConfig{Name: p.Name, Command: p.Command, Dir: p.Dir})
		}
	}
	if c.Extract.Policy == "" {
		c.Extract.Policy = string(extract.PolicyWarn)
	}
	if c.Extract.EmbedGate == nil {
		c.Extract.EmbedGate = boolPtr(true)
	}
	if c.Extract.Preflight == nil {
		c.Extract.Preflight = boolPtr(true)
	}

	if c.Output.ConfPy == "" {
		c.Output.ConfPy = DefaultConfPy
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultNotifySubject
	}
	if c.Notify.Timeout == "" {
		c.Notify.Timeout = DefaultNotifyTimeout
	}
	if c.Watch.Paths == nil {
		c.Watch.Paths = slices.Clone(DefaultWatchPaths)
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = DefaultWatchDebounce
	}

	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB == 0 {
			c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
		}
		if c.Logging.MaxBackups == 0 {
			c.Logging.MaxBackups = DefaultLogMaxBackups
		}
		if c.Logging.MaxAgeDays == 0 {
			c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
		}
	}
}

func boolPtr(b bool) *bool { return &b }
