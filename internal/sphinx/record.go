package sphinx

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

// Option names read by Sphinx (and the breathe extension) from conf.py.
const (
	KeyProject               = "project"
	KeyCopyright             = "copyright"
	KeyAuthor                = "author"
	KeyRelease               = "release"
	KeyExtensions            = "extensions"
	KeyTemplatesPath         = "templates_path"
	KeyExcludePatterns       = "exclude_patterns"
	KeyBreatheProjects       = "breathe_projects"
	KeyBreatheDefaultProject = "breathe_default_project"
	KeyHTMLTheme             = "html_theme"
	KeyHTMLStaticPath        = "html_static_path"
	KeyHTMLTitle             = "html_title"
	KeyHTMLThemeOptions      = "html_theme_options"
)

// BreatheExtension is the extension that bridges doxygen XML into Sphinx.
const BreatheExtension = "breathe"

var keyOrder = []string{
	KeyProject,
	KeyCopyright,
	KeyAuthor,
	KeyRelease,
	KeyExtensions,
	KeyTemplatesPath,
	KeyExcludePatterns,
	KeyBreatheProjects,
	KeyBreatheDefaultProject,
	KeyHTMLTheme,
	KeyHTMLStaticPath,
	KeyHTMLTitle,
	KeyHTMLThemeOptions,
}

// Keys returns the conf.py option names in the order they are written.
func Keys() []string {
	return slices.Clone(keyOrder)
}

// Fields is the mutable input used to build a Record.
type Fields struct {
	Project               string
	Copyright             string
	Author                string
	Release               string
	Extensions            []string
	TemplatesPath         []string
	ExcludePatterns       []string
	BreatheProjects       map[string]string
	BreatheDefaultProject string
	HTMLTheme             string
	HTMLStaticPath        []string
	HTMLTitle             string
	HTMLThemeOptions      map[string]any
}

// DefaultFields returns the configuration of the CwAPI3D reference documentation.
func DefaultFields() Fields {
	return Fields{
		Project:         "CwAPI3D",
		Copyright:       "2024, Cadwork",
		Author:          "Cadwork",
		Release:         "30",
		Extensions:      []string{BreatheExtension},
		TemplatesPath:   []string{"_templates"},
		ExcludePatterns: []string{"_build", "Thumbs.db", ".DS_Store", "venv"},
		BreatheProjects: map[string]string{
			"CwAPI3D":  "../doxyxml/",
			"APITypes": "../docTypes/doxyxml/",
		},
		BreatheDefaultProject: "CwAPI3D",
		HTMLTheme:             "sphinx_rtd_theme",
		HTMLStaticPath:        []string{"_static"},
		HTMLTitle:             "CwAPI3D Documentation",
		HTMLThemeOptions: map[string]any{
			"navigation_depth": 2,
		},
	}
}

// Record is the immutable configuration handed to Sphinx. Accessors return copies.
type Record struct {
	f Fields
}

// New validates f and returns a Record holding a deep copy of it.
func New(f Fields) (*Record, error) {
	r := &Record{f: cloneFields(f)}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is New for values known to be valid, such as DefaultFields.
func MustNew(f Fields) *Record {
	r, err := New(f)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the Record built from DefaultFields.
func Default() *Record {
	return MustNew(DefaultFields())
}

func (r *Record) Project() string                    { return r.f.Project }
func (r *Record) Copyright() string                  { return r.f.Copyright }
func (r *Record) Author() string                     { return r.f.Author }
func (r *Record) Release() string                    { return r.f.Release }
func (r *Record) Extensions() []string               { return slices.Clone(r.f.Extensions) }
func (r *Record) TemplatesPath() []string            { return slices.Clone(r.f.TemplatesPath) }
func (r *Record) ExcludePatterns() []string          { return slices.Clone(r.f.ExcludePatterns) }
func (r *Record) BreatheProjects() map[string]string { return maps.Clone(r.f.BreatheProjects) }
func (r *Record) BreatheDefaultProject() string      { return r.f.BreatheDefaultProject }
func (r *Record) HTMLTheme() string                  { return r.f.HTMLTheme }
func (r *Record) HTMLStaticPath() []string           { return slices.Clone(r.f.HTMLStaticPath) }
func (r *Record) HTMLTitle() string                  { return r.f.HTMLTitle }
func (r *Record) HTMLThemeOptions() map[string]any   { return maps.Clone(r.f.HTMLThemeOptions) }

// Fields returns a deep copy of the record's input, for building a modified record.
func (r *Record) Fields() Fields {
	return cloneFields(r.f)
}

// BreatheProjectNames returns the breathe project labels, sorted.
func (r *Record) BreatheProjectNames() []string {
	names := make([]string, 0, len(r.f.BreatheProjects))
	for name := range r.f.BreatheProjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeyValue is one conf.py assignment.
type KeyValue struct {
	Key   string
	Value any
}

// Values returns every option in Keys order. Values are copies.
func (r *Record) Values() []KeyValue {
	return []KeyValue{
		{KeyProject, r.Project()},
		{KeyCopyright, r.Copyright()},
		{KeyAuthor, r.Author()},
		{KeyRelease, r.Release()},
		{KeyExtensions, r.Extensions()},
		{KeyTemplatesPath, r.TemplatesPath()},
		{KeyExcludePatterns, r.ExcludePatterns()},
		{KeyBreatheProjects, r.BreatheProjects()},
		{KeyBreatheDefaultProject, r.BreatheDefaultProject()},
		{KeyHTMLTheme, r.HTMLTheme()},
		{KeyHTMLStaticPath, r.HTMLStaticPath()},
		{KeyHTMLTitle, r.HTMLTitle()},
		{KeyHTMLThemeOptions, r.HTMLThemeOptions()},
	}
}

// Lookup returns the value of a single option.
func (r *Record) Lookup(key string) (any, bool) {
	for _, kv := range r.Values() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Validate checks the cross-field rules Sphinx and breathe rely on.
func (r *Record) Validate() error {
	var problems []string
	if strings.TrimSpace(r.f.Project) == "" {
		problems = append(problems, "project must not be empty")
	}
	if len(r.f.BreatheProjects) > 0 {
		if !slices.Contains(r.f.Extensions, BreatheExtension) {
			problems = append(problems, "breathe_projects set but extensions does not include \"breathe\"")
		}
		if _, ok := r.f.BreatheProjects[r.f.BreatheDefaultProject]; !ok {
			problems = append(problems, fmt.Sprintf("breathe_default_project %q is not one of %v", r.f.BreatheDefaultProject, r.BreatheProjectNames()))
		}
	} else if r.f.BreatheDefaultProject != "" {
		problems = append(problems, "breathe_default_project set without breathe_projects")
	}
	for name, path := range r.f.BreatheProjects {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(path) == "" {
			problems = append(problems, "breathe_projects entries need a label and a path")
			break
		}
	}
	for _, k := range sortedKeys(r.f.HTMLThemeOptions) {
		switch v := r.f.HTMLThemeOptions[k].(type) {
		case string, bool, int, int64:
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				problems = append(problems, fmt.Sprintf("html_theme_options[%q] must be a finite number", k))
			}
		default:
			problems = append(problems, fmt.Sprintf("html_theme_options[%q] has unsupported type %T", k, r.f.HTMLThemeOptions[k]))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return ferrors.ValidationError("invalid sphinx configuration: " + strings.Join(problems, "; ")).
		WithContext("problems", len(problems)).
		Build()
}

func cloneFields(f Fields) Fields {
	out := f
	out.Extensions = slices.Clone(f.Extensions)
	out.TemplatesPath = slices.Clone(f.TemplatesPath)
	out.ExcludePatterns = slices.Clone(f.ExcludePatterns)
	out.HTMLStaticPath = slices.Clone(f.HTMLStaticPath)
	out.BreatheProjects = maps.Clone(f.BreatheProjects)
	out.HTMLThemeOptions = maps.Clone(f.HTMLThemeOptions)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
