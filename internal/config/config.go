// Package config loads docprep.yaml (or docprep.toml) and turns it into the
// settings a preparation run needs.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

// CurrentVersion is the only accepted value of the version key.
const CurrentVersion = "1"

// DefaultFile is looked up in the working directory when --config is not given.
const DefaultFile = "docprep.yaml"

// Config is the on-disk configuration.
type Config struct {
	Version string `yaml:"version" toml:"version"`
	// DocsDir holds conf.py and is relative to the config file.
	DocsDir string        `yaml:"docs_dir" toml:"docs_dir"`
	Project ProjectConfig `yaml:"project" toml:"project"`
	Sphinx  SphinxConfig  `yaml:"sphinx" toml:"sphinx"`
	Breathe BreatheConfig `yaml:"breathe" toml:"breathe"`
	HTML    HTMLConfig    `yaml:"html" toml:"html"`
	Extract ExtractConfig `yaml:"extract" toml:"extract"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	Notify  NotifyConfig  `yaml:"notify" toml:"notify"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	baseDir string
}

// ProjectConfig is the project identity shown by Sphinx.
type ProjectConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Copyright string `yaml:"copyright" toml:"copyright"`
	// CopyrightYear "auto" replaces the year in Copyright with the HEAD commit year.
	CopyrightYear string `yaml:"copyright_year,omitempty" toml:"copyright_year,omitempty"`
	Author        string `yaml:"author" toml:"author"`
	Release       string `yaml:"release" toml:"release"`
	// ReleaseFromHeader reads versionMajor from a C++ header when Release is empty.
	ReleaseFromHeader string `yaml:"release_from_header,omitempty" toml:"release_from_header,omitempty"`
}

// SphinxConfig holds generator-level options.
type SphinxConfig struct {
	Extensions      []string `yaml:"extensions" toml:"extensions"`
	TemplatesPath   []string `yaml:"templates_path" toml:"templates_path"`
	ExcludePatterns []string `yaml:"exclude_patterns" toml:"exclude_patterns"`
}

// BreatheConfig maps project labels to doxygen XML directories, relative to DocsDir.
type BreatheConfig struct {
	Projects       map[string]string `yaml:"projects" toml:"projects"`
	DefaultProject string            `yaml:"default_project" toml:"default_project"`
}

// HTMLConfig selects the theme.
type HTMLConfig struct {
	Theme        string         `yaml:"theme" toml:"theme"`
	Title        string         `yaml:"title" toml:"title"`
	StaticPath   []string       `yaml:"static_path" toml:"static_path"`
	ThemeOptions map[string]any `yaml:"theme_options" toml:"theme_options"`
}

// ExtractConfig controls the gated doxygen passes.
type ExtractConfig struct {
	GateVariable string       `yaml:"gate_variable" toml:"gate_variable"`
	GateSentinel string       `yaml:"gate_sentinel" toml:"gate_sentinel"`
	Passes       []PassConfig `yaml:"passes" toml:"passes"`
	// Policy is ignore, warn or strict.
	Policy string `yaml:"policy" toml:"policy"`
	// Timeout per pass, e.g. "10m". Empty means none.
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	// EmbedGate writes the gate and passes into conf.py so hosts that run
	// Sphinx directly still extract. Defaults to true. A run that executed the
	// passes with the gate open writes conf.py without them.
	EmbedGate *bool `yaml:"embed_gate,omitempty" toml:"embed_gate,omitempty"`
	// Preflight checks breathe project directories after extraction. Defaults to true.
	Preflight *bool `yaml:"preflight,omitempty" toml:"preflight,omitempty"`
}

// PassConfig is one extraction command.
type PassConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Command string `yaml:"command" toml:"command"`
	Dir     string `yaml:"dir" toml:"dir"`
}

// OutputConfig says where conf.py goes.
type OutputConfig struct {
	// ConfPy is relative to DocsDir.
	ConfPy string `yaml:"conf_py" toml:"conf_py"`
	Banner string `yaml:"banner,omitempty" toml:"banner,omitempty"`
}

// HistoryConfig enables the sqlite run log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
	// Keep bounds the number of stored runs; 0 keeps everything.
	Keep int `yaml:"keep" toml:"keep"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Listen serves /metrics while watching, e.g. ":9464".
	Listen string `yaml:"listen,omitempty" toml:"listen,omitempty"`
	// Textfile is written after one-shot runs for the node_exporter textfile collector.
	Textfile string `yaml:"textfile,omitempty" toml:"textfile,omitempty"`
}

// NotifyConfig publishes run results to NATS.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	// Retries after a failed publish; defaults to 2.
	Retries    *int   `yaml:"retries,omitempty" toml:"retries,omitempty"`
	Backoff    string `yaml:"backoff,omitempty" toml:"backoff,omitempty"`
	RetryDelay string `yaml:"retry_delay,omitempty" toml:"retry_delay,omitempty"`
	RetryMax   string `yaml:"retry_max,omitempty" toml:"retry_max,omitempty"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Paths are relative to the config file.
	Paths    []string `yaml:"paths" toml:"paths"`
	Debounce string   `yaml:"debounce" toml:"debounce"`
	// Refresh forces a preparation on a fixed interval, e.g. "1h". Empty disables it.
	Refresh string `yaml:"refresh,omitempty" toml:"refresh,omitempty"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" toml:"level"`
	Format LogFormat `yaml:"format" toml:"format"`
	// File additionally receives logs through a rotating writer.
	File       string `yaml:"file,omitempty" toml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" toml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" toml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" toml:"max_age_days,omitempty"`
}

// BaseDir is the directory relative paths are resolved against.
func (c *Config) BaseDir() string {
	if c.baseDir == "" {
		return "."
	}
	return c.baseDir
}

// Resolve joins a relative path onto BaseDir.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir(), p)
}

// DocsPath is the resolved docs directory.
func (c *Config) DocsPath() string { return c.Resolve(c.DocsDir) }

// ConfPyPath is the resolved conf.py output path.
func (c *Config) ConfPyPath() string {
	if filepath.IsAbs(c.Output.ConfPy) {
		return c.Output.ConfPy
	}
	return filepath.Join(c.DocsPath(), c.Output.ConfPy)
}

// Load reads, expands, normalizes, defaults and validates a config file.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NewError(ferrors.CategoryNotFound, "configuration file not found").
				WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration file").
			WithContext("path", path).Build()
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve configuration directory").Build()
	}
	cfg.baseDir = abs
	return cfg, nil
}

// LoadOrDefault loads path when it exists. A missing file is only an error
// when required is set; otherwise the defaults are returned.
func LoadOrDefault(path string, required bool) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !required {
		loadEnvFiles(filepath.Dir(path))
		cfg := Default()
		if abs, absErr := filepath.Abs(filepath.Dir(path)); absErr == nil {
			cfg.baseDir = abs
		}
		return cfg, nil
	}
	return Load(path)
}

// Parse decodes data, choosing the format from the extension of name, and
// runs the same normalize, default and validate steps as Load. Relative
// paths resolve against the working directory.
func Parse(name string, data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if isTOML(name) {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to decode TOML configuration").
				WithContext("path", name).Build()
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to decode YAML configuration").
			WithContext("path", name).Build()
	}

	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, ferrors.ConfigError("unsupported configuration version "+cfg.Version+" (expected "+CurrentVersion+")").
			WithContext("path", name).Build()
	}

	res := NormalizeConfig(&cfg)
	res.Log()
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, which reproduces the CwAPI3D conf.py.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func isTOML(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".toml")
}
