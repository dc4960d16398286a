// Package preflight verifies that extraction output exists where the
// Breathe projects of a conf.py expect it.
package preflight

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/logfields"
)

// IndexFile is written by doxygen at the top of every XML output directory.
const IndexFile = "index.xml"

// Status of a single project check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	StatusEscapes Status = "escapes_root"
)

// ProjectCheck is the result for one Breathe project.
type ProjectCheck struct {
	Name     string
	Declared string
	Resolved string
	Status   Status
	Detail   string
}

// Report lists checks in project name order.
type Report struct {
	Root     string
	Projects []ProjectCheck
}

// Missing returns the projects whose index file was not found.
func (r *Report) Missing() []ProjectCheck {
	var out []ProjectCheck
	for _, p := range r.Projects {
		if p.Status != StatusOK {
			out = append(out, p)
		}
	}
	return out
}

// OK reports whether every project resolved to an existing index file.
func (r *Report) OK() bool { return len(r.Missing()) == 0 }

// Err turns a failed report into a classified error, or nil.
func (r *Report) Err() error {
	missing := r.Missing()
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, len(missing))
	for i, p := range missing {
		parts[i] = fmt.Sprintf("%s (%s: %s)", p.Name, p.Declared, p.Detail)
	}
	return ferrors.NewError(ferrors.CategoryNotFound, "extraction output missing for "+strings.Join(parts, ", ")).
		WithContext("root", r.Root).
		WithContext("missing", len(missing)).
		Build()
}

// Check resolves each project path relative to docsDir and confirms that
// an index file exists there. Relative paths may not leave the directory
// above docsDir, which is treated as the repository root.
func Check(docsDir string, projects map[string]string) (*Report, error) {
	absDocs, err := filepath.Abs(docsDir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve docs directory").
			WithContext("dir", docsDir).Build()
	}
	root := filepath.Dir(absDocs)
	report := &Report{Root: root}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := checkProject(root, absDocs, name, projects[name])
		if pc.Status != StatusOK {
			slog.Debug("Breathe project not ready",
				logfields.Project(name),
				logfields.Path(pc.Resolved),
				slog.String("status", string(pc.Status)))
		}
		report.Projects = append(report.Projects, pc)
	}
	return report, nil
}

func checkProject(root, absDocs, name, declared string) ProjectCheck {
	pc := ProjectCheck{Name: name, Declared: declared}

	var dir string
	if filepath.IsAbs(declared) {
		dir = filepath.Clean(declared)
	} else {
		lexical := filepath.Join(absDocs, declared)
		rel, err := filepath.Rel(root, lexical)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			pc.Resolved = lexical
			pc.Status = StatusEscapes
			pc.Detail = "path leaves " + root
			return pc
		}
		// Symlinks inside the tree are resolved without leaving root.
		dir, err = securejoin.SecureJoin(root, rel)
		if err != nil {
			pc.Resolved = lexical
			pc.Status = StatusMissing
			pc.Detail = err.Error()
			return pc
		}
	}
	pc.Resolved = dir

	info, err := os.Stat(filepath.Join(dir, IndexFile))
	switch {
	case err == nil && !info.IsDir():
		pc.Status = StatusOK
	case err == nil:
		pc.Status = StatusMissing
		pc.Detail = IndexFile + " is a directory"
	case errors.Is(err, os.ErrNotExist):
		pc.Status = StatusMissing
		pc.Detail = "no " + IndexFile
	default:
		pc.Status = StatusMissing
		pc.Detail = err.Error()
	}
	return pc
}
