package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docprep/internal/extract"
	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/retry"
	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

func TestDefaultReproducesReferenceRecord(t *testing.T) {
	cfg := Default()

	rec, err := sphinx.New(cfg.Fields())
	require.NoError(t, err)
	assert.Equal(t, sphinx.Default().Values(), rec.Values())

	assert.Equal(t, extract.DefaultGate(), cfg.Gate())
	assert.Equal(t, extract.DefaultPasses(), cfg.Passes())
	assert.Equal(t, extract.PolicyWarn, cfg.Policy())
	assert.True(t, cfg.EmbedGate())
	assert.True(t, cfg.PreflightEnabled())
	assert.Zero(t, cfg.ExtractTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
}

func TestLoadYAMLOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("DOCPREP_TEST_RELEASE", "31")
	dir := t.TempDir()
	path := filepath.Join(dir, "docprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1"
docs_dir: documentation
project:
  name: " MyAPI "
  release: ${DOCPREP_TEST_RELEASE}
breathe:
  projects:
    Main: ../xml/
extract:
  policy: STRICT
  timeout: 2m
  passes:
    - name: main
      command: doxygen Doxyfile.main
      dir: ..
html:
  theme_options:
    navigation_depth: 4
    collapse_navigation: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MyAPI", cfg.Project.Name)
	assert.Equal(t, "31", cfg.Project.Release)
	assert.Equal(t, "Cadwork", cfg.Project.Author, "unset keys take defaults")
	assert.Equal(t, map[string]string{"Main": "../xml/"}, cfg.Breathe.Projects)
	assert.Equal(t, "Main", cfg.Breathe.DefaultProject, "single project becomes the default")
	assert.Equal(t, extract.PolicyStrict, cfg.Policy())
	assert.Equal(t, 2*time.Minute, cfg.ExtractTimeout())
	assert.Equal(t, []extract.Pass{{Name: "main", Command: "doxygen Doxyfile.main", Dir: ".."}}, cfg.Passes())
	assert.Equal(t, map[string]any{"navigation_depth": 4, "collapse_navigation": false}, cfg.HTML.ThemeOptions)

	assert.Equal(t, dir, cfg.BaseDir())
	assert.Equal(t, filepath.Join(dir, "documentation"), cfg.DocsPath())
	assert.Equal(t, filepath.Join(dir, "documentation", "conf.py"), cfg.ConfPyPath())
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docprep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
version = "1"

[project]
name = "CwAPI3D"
release_from_header = "include/cwapi3d/CwAPI3DVersion.h"
copyright_year = "Auto"

[html.theme_options]
navigation_depth = 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.Project.Release, "release comes from the header")
	assert.Equal(t, CopyrightYearAuto, cfg.Project.CopyrightYear)
	assert.Equal(t, map[string]any{"navigation_depth": int64(3)}, cfg.HTML.ThemeOptions)
	assert.Len(t, cfg.Breathe.Projects, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(filepath.Join(dir, DefaultFile), false)
	require.NoError(t, err)
	assert.Equal(t, "CwAPI3D", cfg.Project.Name)
	assert.Equal(t, dir, cfg.BaseDir())

	_, err = LoadOrDefault(filepath.Join(dir, DefaultFile), true)
	assert.Error(t, err)
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"version", `version: "2"`, "unsupported configuration version 2"},
		{"syntax", "project: [", "failed to decode YAML configuration"},
		{"pass without command", "extract:\n  passes:\n    - name: a\n", "extract.passes[0]: command is required"},
		{"duplicate pass", "extract:\n  passes:\n    - {name: a, command: x}\n    - {name: a, command: y}\n", `duplicate name "a"`},
		{"bad timeout", "extract:\n  timeout: soon\n", "extract.timeout"},
		{"notify without url", "notify:\n  enabled: true\n", "notify.url is required"},
		{"unknown backoff", "notify:\n  backoff: random\n", "notify.backoff"},
		{"negative retries", "notify:\n  retries: -1\n", "notify.retries must not be negative"},
		{"unknown default project", "breathe:\n  default_project: Nope\n", `breathe_default_project "Nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("docprep.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeConfigWarnsOnUnknownEnums(t *testing.T) {
	cfg := &Config{
		Extract: ExtractConfig{Policy: "sometimes"},
		Logging: LoggingConfig{Level: "LOUD", Format: " JSON "},
		Project: ProjectConfig{CopyrightYear: "last year"},
	}
	res := NormalizeConfig(cfg)

	assert.Equal(t, string(extract.PolicyWarn), cfg.Extract.Policy)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Empty(t, cfg.Project.CopyrightYear)
	assert.Len(t, res.Warnings, 4)
}

func TestNotifyRetryPolicy(t *testing.T) {
	cfg := Default()
	assert.Equal(t, retry.DefaultPolicy(), cfg.NotifyRetry())

	cfg, err := Parse("docprep.yaml", []byte("notify:\n  retries: 0\n  backoff: exponential\n  retry_delay: 100ms\n  retry_max: 1s\n"))
	require.NoError(t, err)
	p := cfg.NotifyRetry()
	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, retry.ModeExponential, p.Mode)
	assert.Equal(t, 100*time.Millisecond, p.Initial)
	assert.Equal(t, time.Second, p.Max)
}

func TestExplicitEmptyListsAreKept(t *testing.T) {
	cfg, err := Parse("docprep.yaml", []byte("sphinx:\n  exclude_patterns: []\nextract:\n  passes: []\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Sphinx.ExcludePatterns)
	assert.NotNil(t, cfg.Sphinx.ExcludePatterns)
	assert.Empty(t, cfg.Passes())
}

func TestInitRoundTrips(t *testing.T) {
	for _, name := range []string{"docprep.yaml", "docprep.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Init(path, false))

			err := Init(path, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "already exists")
			require.NoError(t, Init(path, true))

			cfg, err := Load(path)
			require.NoError(t, err)
			rec, err := sphinx.New(cfg.Fields())
			require.NoError(t, err)
			assert.Equal(t, sphinx.Default().Project(), rec.Project())
			assert.Equal(t, sphinx.Default().BreatheProjects(), rec.BreatheProjects())
			assert.Equal(t, cfg.Passes(), extract.DefaultPasses())
		})
	}
}

func TestEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCPREP_TEST_AUTHOR", "process")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCPREP_TEST_AUTHOR=file\nDOCPREP_TEST_TITLE=From env file\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("DOCPREP_TEST_TITLE") })

	path := filepath.Join(dir, "docprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  author: ${DOCPREP_TEST_AUTHOR}\nhtml:\n  title: ${DOCPREP_TEST_TITLE}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.Project.Author)
	assert.Equal(t, "From env file", cfg.HTML.Title)
}
