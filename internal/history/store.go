// Package history keeps a local log of preparation runs.
package history

import (
	"context"
	"time"
)

// PassSummary is the stored outcome of one extraction pass.
type PassSummary struct {
	Name       string `json:"name"`
	Command    string `json:"command"`
	Dir        string `json:"dir"`
	DurationMS int64  `json:"duration_ms"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// Run is one stored preparation.
type Run struct {
	ID          int64
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcome     string
	GateOpen    bool
	Forced      bool
	Policy      string
	Release     string
	ConfPath    string
	ConfChanged bool
	Passes      []PassSummary
	Error       string
}

// Duration is FinishedAt minus StartedAt.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Store persists runs.
type Store interface {
	Record(ctx context.Context, run Run) (int64, error)
	// List returns up to limit runs, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Run, error)
	// Prune deletes all but the newest keep runs and reports how many were removed.
	Prune(ctx context.Context, keep int) (int64, error)
	Close() error
}
