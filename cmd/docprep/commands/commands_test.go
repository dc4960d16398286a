package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docprep/internal/config"
	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

// execute parses args like main does and runs the selected command.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	var out bytes.Buffer
	g := &Global{Out: &out}
	parser, err := kong.New(&cli,
		kong.Name("docprep"),
		kong.Vars{"version": "test"},
		kong.Bind(g, &cli),
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return out.String(), err
	}
	err = kctx.Run()
	g.Close()
	return out.String(), err
}

// newRepo lays out a checkout with docs/ and, optionally, doxygen XML output.
func newRepo(t *testing.T, yaml string, withXML bool) (root, cfgPath string) {
	t.Helper()
	t.Setenv("READTHEDOCS", "")
	root = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	if withXML {
		for _, dir := range []string{"doxyxml", filepath.Join("docTypes", "doxyxml")} {
			require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(root, dir, "index.xml"), []byte("<doxygenindex/>"), 0o644))
		}
	}
	cfgPath = filepath.Join(root, "docprep.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	return root, cfgPath
}

func TestInitWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docprep.yaml")

	out, err := execute(t, "init", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CwAPI3D", cfg.Project.Name)

	_, err = execute(t, "init", "-c", path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = execute(t, "init", "-c", path, "--force")
	require.NoError(t, err)
}

func TestInitTOMLIntoOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo")

	_, err := execute(t, "init", "--toml", "-o", dir)
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, "docprep.toml"))
	require.NoError(t, err)
	assert.Equal(t, "sphinx_rtd_theme", cfg.HTML.Theme)
}

func TestExplicitMissingConfigIsNotFound(t *testing.T) {
	_, err := execute(t, "show", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, 4, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestShowJSON(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\n", false)

	out, err := execute(t, "show", "-c", cfgPath, "-f", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "CwAPI3D", decoded["project"])
	assert.Equal(t, "30", decoded["release"])
}

func TestShowKey(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\n", false)

	out, err := execute(t, "show", "-c", cfgPath, "-k", "html_theme_options")
	require.NoError(t, err)
	assert.Equal(t, "{\"navigation_depth\":2}\n", out)

	out, err = execute(t, "show", "-c", cfgPath, "-k", "copyright")
	require.NoError(t, err)
	assert.Equal(t, "2024, Cadwork\n", out)

	_, err = execute(t, "show", "-c", cfgPath, "-k", "html_sidebars")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestPrepareIsTheDefaultCommand(t *testing.T) {
	root, cfgPath := newRepo(t, "version: \"1\"\n", true)

	out, err := execute(t, "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "extract  skipped (gate closed)")
	assert.Contains(t, out, "outcome  skipped")

	data, err := os.ReadFile(filepath.Join(root, "docs", "conf.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "html_title = 'CwAPI3D Documentation'\n")

	out, err = execute(t, "prepare", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(unchanged)")
}

func TestPrepareWarnsAboutMissingXML(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\n", false)

	out, err := execute(t, "prepare", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "missing  APITypes")
	assert.Contains(t, out, "missing  CwAPI3D")
	assert.Contains(t, out, "outcome  degraded")
}

func TestGenerateStdoutDoesNotWrite(t *testing.T) {
	root, cfgPath := newRepo(t, "version: \"1\"\n", true)

	out, err := execute(t, "generate", "-c", cfgPath, "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "project = 'CwAPI3D'\n")
	assert.Contains(t, out, "read_the_docs_build = ")

	_, err = os.Stat(filepath.Join(root, "docs", "conf.py"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractWithClosedGate(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\n", false)

	out, err := execute(t, "extract", "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "extract  skipped (gate closed)\n", out)
}

func TestCheck(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\n", true)
	out, err := execute(t, "check", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration ok (release 30 from config)")
	assert.Contains(t, out, "ok ")

	_, cfgPath = newRepo(t, "version: \"1\"\n", false)
	out, err = execute(t, "check", "-c", cfgPath)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Contains(t, out, "missing ")
}

func TestHistoryListsRuns(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\nhistory:\n  enabled: true\n  path: state/history.db\n", true)

	for range 2 {
		_, err := execute(t, "prepare", "-c", cfgPath)
		require.NoError(t, err)
	}

	out, err := execute(t, "history", "-c", cfgPath, "--json")
	require.NoError(t, err)
	var runs []historyRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "skipped", runs[0].Outcome)
	assert.False(t, runs[0].ConfChanged)
	assert.True(t, runs[1].ConfChanged)

	out, err = execute(t, "history", "-c", cfgPath, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "STARTED")
	assert.Contains(t, out, "closed")
}

func TestHistoryDisabled(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\n", false)

	_, err := execute(t, "history", "-c", cfgPath)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestMetricsTextfile(t *testing.T) {
	root, cfgPath := newRepo(t, "version: \"1\"\nmetrics:\n  enabled: true\n  textfile: docprep.prom\n", true)

	_, err := execute(t, "prepare", "-c", cfgPath)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "docprep.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `docprep_prepare_outcomes_total{outcome="skipped"} 1`)
	assert.Contains(t, string(data), `docprep_gate_decisions_total{open="false"} 1`)
}

func TestUnreachableNotifyDoesNotFailTheRun(t *testing.T) {
	_, cfgPath := newRepo(t, "version: \"1\"\nnotify:\n  enabled: true\n  url: nats://127.0.0.1:1\n  timeout: 200ms\n", true)

	out, err := execute(t, "prepare", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "outcome  skipped")
}

func TestLogFileReceivesJSON(t *testing.T) {
	root, cfgPath := newRepo(t, "version: \"1\"\nlogging:\n  level: debug\n  file: logs/docprep.log\n", true)

	_, err := execute(t, "prepare", "-c", cfgPath)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "logs", "docprep.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Preparation complete"`)
}
