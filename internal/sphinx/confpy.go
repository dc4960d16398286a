package sphinx

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

// DefaultBanner heads every generated conf.py.
const DefaultBanner = "Configuration file for the Sphinx documentation builder. Generated by docprep; edit docprep.yaml instead."

// GatePreamble makes the rendered conf.py run the extraction commands itself
// when Sphinx is started by a host that never calls docprep (Read the Docs).
type GatePreamble struct {
	Variable string
	Sentinel string
	// Commands are complete shell lines, e.g. "cd ..; doxygen".
	Commands []string
}

// Flag is the Python variable holding the gate state.
func (GatePreamble) Flag() string { return "read_the_docs_build" }

// RenderOptions controls RenderConfPy output.
type RenderOptions struct {
	Banner string
	Gate   *GatePreamble
}

const confPyTemplate = `# {{.Banner}}
{{- if .Gate}}

import os
import subprocess

{{.Gate.Flag}} = os.environ.get({{py .Gate.Variable}}, None) == {{py .Gate.Sentinel}}
if {{.Gate.Flag}}:
{{- range .Gate.Commands}}
    subprocess.call({{py .}}, shell=True)
{{- end}}
{{- end}}
{{range .Values}}
{{.Key}} = {{py .Value}}
{{- end}}
`

var confPyTmpl = template.Must(template.New("conf.py").
	Funcs(template.FuncMap{"py": pyLiteral}).
	Option("missingkey=error").
	Parse(confPyTemplate))

// RenderConfPy writes r as a Python module Sphinx can load as conf.py.
// Map entries are emitted in sorted key order so output is byte-stable.
func (r *Record) RenderConfPy(w io.Writer, opts RenderOptions) error {
	banner := opts.Banner
	if banner == "" {
		banner = DefaultBanner
	}
	data := struct {
		Banner string
		Gate   *GatePreamble
		Values []KeyValue
	}{
		Banner: strings.ReplaceAll(banner, "\n", " "),
		Gate:   opts.Gate,
		Values: r.Values(),
	}
	if err := confPyTmpl.Execute(w, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "render conf.py").Build()
	}
	return nil
}

// ConfPy is RenderConfPy into a byte slice.
func (r *Record) ConfPy(opts RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderConfPy(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteConfPy renders r to path, replacing any previous file atomically.
// It reports whether the content on disk changed.
func (r *Record) WriteConfPy(path string, opts RenderOptions) (bool, error) {
	data, err := r.ConfPy(opts)
	if err != nil {
		return false, err
	}
	if existing, readErr := os.ReadFile(path); readErr == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create conf.py directory").
			WithContext("dir", dir).Build()
	}
	tmp, err := os.CreateTemp(dir, ".conf.py-*")
	if err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create temp conf.py").
			WithContext("dir", dir).Build()
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "write conf.py").Build()
	}
	if err := tmp.Close(); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "close conf.py").Build()
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "chmod conf.py").Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "replace conf.py").
			WithContext("path", path).Build()
	}
	return true, nil
}

// pyLiteral formats the value types a Record holds as Python source.
func pyLiteral(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return pyString(t), nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", fmt.Errorf("no python literal for non-finite %v", t)
		}
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s, nil
	case []string:
		parts := make([]string, len(t))
		for i, s := range t {
			parts[i] = pyString(s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]string:
		entries := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			entries = append(entries, pyString(k)+": "+pyString(t[k]))
		}
		return pyDict(entries), nil
	case map[string]any:
		entries := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			lit, err := pyLiteral(t[k])
			if err != nil {
				return "", fmt.Errorf("key %q: %w", k, err)
			}
			entries = append(entries, pyString(k)+": "+lit)
		}
		return pyDict(entries), nil
	default:
		return "", fmt.Errorf("no python literal for %T", v)
	}
}

func pyDict(entries []string) string {
	if len(entries) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for _, e := range entries {
		b.WriteString("    ")
		b.WriteString(e)
		b.WriteString(",\n")
	}
	b.WriteString("}")
	return b.String()
}

func pyString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteString(`\ufffd`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\'':
			b.WriteString(`\'`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('\'')
	return b.String()
}
