package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPass       = "pass"
	KeyCommand    = "command"
	KeyDir        = "dir"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyProject    = "project"
	KeyPath       = "path"
	KeyGate       = "gate"
	KeyPolicy     = "policy"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Pass(name string) slog.Attr      { return slog.String(KeyPass, name) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Project(name string) slog.Attr   { return slog.String(KeyProject, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Gate(open bool) slog.Attr        { return slog.Bool(KeyGate, open) }
func Policy(p string) slog.Attr       { return slog.String(KeyPolicy, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
