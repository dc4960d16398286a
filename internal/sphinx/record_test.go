package sphinx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

func TestDefaultRecordHasDocumentedValues(t *testing.T) {
	r := Default()

	assert.Equal(t, "CwAPI3D", r.Project())
	assert.Equal(t, "2024, Cadwork", r.Copyright())
	assert.Equal(t, "Cadwork", r.Author())
	assert.Equal(t, "30", r.Release())
	assert.Equal(t, []string{"breathe"}, r.Extensions())
	assert.Equal(t, []string{"_templates"}, r.TemplatesPath())
	assert.Equal(t, []string{"_build", "Thumbs.db", ".DS_Store", "venv"}, r.ExcludePatterns())
	assert.Equal(t, "CwAPI3D", r.BreatheDefaultProject())
	assert.Equal(t, "sphinx_rtd_theme", r.HTMLTheme())
	assert.Equal(t, []string{"_static"}, r.HTMLStaticPath())
	assert.Equal(t, "CwAPI3D Documentation", r.HTMLTitle())
	assert.Equal(t, map[string]any{"navigation_depth": 2}, r.HTMLThemeOptions())
}

func TestDefaultBreatheProjectsHasExactlyTwoEntries(t *testing.T) {
	projects := Default().BreatheProjects()

	require.Len(t, projects, 2)
	assert.Equal(t, "../doxyxml/", projects["CwAPI3D"])
	assert.Equal(t, "../docTypes/doxyxml/", projects["APITypes"])
}

func TestValuesCoverExactlyTheKeyVocabulary(t *testing.T) {
	values := Default().Values()

	got := make([]string, 0, len(values))
	for _, kv := range values {
		got = append(got, kv.Key)
	}
	assert.Equal(t, Keys(), got)
	assert.Len(t, got, 13)

	depth, ok := Default().Lookup(KeyHTMLThemeOptions)
	require.True(t, ok)
	assert.Equal(t, 2, depth.(map[string]any)["navigation_depth"])

	_, ok = Default().Lookup("html_sidebars")
	assert.False(t, ok)
}

func TestRecordIsNotMutatedThroughAccessors(t *testing.T) {
	r := Default()

	r.Extensions()[0] = "sphinx.ext.autodoc"
	r.BreatheProjects()["Extra"] = "../extra/"
	r.HTMLThemeOptions()["navigation_depth"] = 9
	keys := Keys()
	keys[0] = "name"

	assert.Equal(t, []string{"breathe"}, r.Extensions())
	assert.Len(t, r.BreatheProjects(), 2)
	assert.Equal(t, 2, r.HTMLThemeOptions()["navigation_depth"])
	assert.Equal(t, KeyProject, Keys()[0])
}

func TestRecordIsNotMutatedThroughInputFields(t *testing.T) {
	f := DefaultFields()
	r, err := New(f)
	require.NoError(t, err)

	f.ExcludePatterns[0] = "changed"
	f.BreatheProjects["CwAPI3D"] = "/elsewhere"

	assert.Equal(t, "_build", r.ExcludePatterns()[0])
	assert.Equal(t, "../doxyxml/", r.BreatheProjects()["CwAPI3D"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Fields)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Fields) {},
		},
		{
			name:    "unknown default project",
			mutate:  func(f *Fields) { f.BreatheDefaultProject = "Missing" },
			wantErr: `breathe_default_project "Missing" is not one of [APITypes CwAPI3D]`,
		},
		{
			name:    "breathe extension missing",
			mutate:  func(f *Fields) { f.Extensions = []string{"sphinx.ext.todo"} },
			wantErr: `extensions does not include "breathe"`,
		},
		{
			name:    "empty project",
			mutate:  func(f *Fields) { f.Project = "  " },
			wantErr: "project must not be empty",
		},
		{
			name: "default project without projects",
			mutate: func(f *Fields) {
				f.BreatheProjects = nil
			},
			wantErr: "breathe_default_project set without breathe_projects",
		},
		{
			name:    "nested theme option",
			mutate:  func(f *Fields) { f.HTMLThemeOptions["logo"] = map[string]any{"x": 1} },
			wantErr: `html_theme_options["logo"] has unsupported type`,
		},
		{
			name:    "infinite theme option",
			mutate:  func(f *Fields) { f.HTMLThemeOptions["x"] = math.Inf(1) },
			wantErr: `html_theme_options["x"] must be a finite number`,
		},
		{
			name:    "NaN theme option",
			mutate:  func(f *Fields) { f.HTMLThemeOptions["x"] = math.NaN() },
			wantErr: `html_theme_options["x"] must be a finite number`,
		},
		{
			name:   "finite float theme option",
			mutate: func(f *Fields) { f.HTMLThemeOptions["ratio"] = 0.5 },
		},
		{
			name: "no breathe at all is fine",
			mutate: func(f *Fields) {
				f.BreatheProjects = nil
				f.BreatheDefaultProject = ""
				f.Extensions = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFields()
			tt.mutate(&f)
			_, err := New(f)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestMustNewPanicsOnInvalidFields(t *testing.T) {
	f := DefaultFields()
	f.Project = ""
	assert.Panics(t, func() { MustNew(f) })
}
