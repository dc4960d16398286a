package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "9f1c", RunID("9f1c")},
		{"Pass", KeyPass, "types", Pass("types")},
		{"Command", KeyCommand, "doxygen doxyfile_types", Command("doxygen doxyfile_types")},
		{"Dir", KeyDir, "..", Dir("..")},
		{"Stage", KeyStage, "extract", Stage("extract")},
		{"Project", KeyProject, "CwAPI3D", Project("CwAPI3D")},
		{"Path", KeyPath, "docs/conf.py", Path("docs/conf.py")},
		{"Policy", KeyPolicy, "warn", Policy("warn")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNonStringHelpers(t *testing.T) {
	if v := DurationMS(12.5); v.Key != KeyDurationMS || v.Value.Float64() != 12.5 {
		t.Fatalf("DurationMS mismatch: %v", v)
	}
	if v := Gate(true); v.Key != KeyGate || !v.Value.Bool() {
		t.Fatalf("Gate mismatch: %v", v)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
