package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"git.home.luguber.info/inful/docprep/internal/sphinx"
)

// Pass is one invocation of the extraction tool.
type Pass struct {
	Name string
	// Command is a shell-quoted command line, e.g. "doxygen doxyfile_types".
	Command string
	// Dir is the working directory, relative to the docs directory unless absolute.
	Dir string
}

// DefaultPasses extract the main API and the shared types, both from the
// repository root one level above the docs directory.
func DefaultPasses() []Pass {
	return []Pass{
		{Name: "api", Command: "doxygen", Dir: ".."},
		{Name: "types", Command: "doxygen doxyfile_types", Dir: ".."},
	}
}

// Argv splits Command into program and arguments.
func (p Pass) Argv() ([]string, error) {
	argv, err := shellquote.Split(p.Command)
	if err != nil {
		return nil, fmt.Errorf("pass %q: parse command: %w", p.Name, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("pass %q: empty command", p.Name)
	}
	return argv, nil
}

// ResolveDir returns the absolute-or-joined working directory for the pass.
func (p Pass) ResolveDir(docsDir string) string {
	dir := p.Dir
	if dir == "" {
		dir = "."
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(docsDir, dir)
}

// ShellLine renders the pass as "cd <dir>; <command>" for hosts that only run a shell.
func (p Pass) ShellLine() string {
	dir := p.Dir
	if dir == "" {
		dir = "."
	}
	return "cd " + shellquote.Join(dir) + "; " + strings.TrimSpace(p.Command)
}

// Preamble builds the conf.py gate block that replays passes on hosts
// that start Sphinx without running docprep first.
func Preamble(g Gate, passes []Pass) *sphinx.GatePreamble {
	lines := make([]string, 0, len(passes))
	for _, p := range passes {
		lines = append(lines, p.ShellLine())
	}
	return &sphinx.GatePreamble{Variable: g.Variable, Sentinel: g.Sentinel, Commands: lines}
}
