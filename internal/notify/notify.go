// Package notify publishes preparation results so other services (docs
// hosting, chat bots) can react to fresh or failed builds.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/logfields"
	"git.home.luguber.info/inful/docprep/internal/retry"
)

// Event is the JSON message sent after each preparation.
type Event struct {
	RunID       string    `json:"run_id"`
	Project     string    `json:"project"`
	Release     string    `json:"release"`
	Outcome     string    `json:"outcome"`
	GateOpen    bool      `json:"gate_open"`
	Forced      bool      `json:"forced"`
	FailedPass  []string  `json:"failed_passes,omitempty"`
	Missing     []string  `json:"missing_projects,omitempty"`
	ConfPath    string    `json:"conf_path"`
	ConfChanged bool      `json:"conf_changed"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// FlushWithContext requires a deadline; this one applies when the caller has none.
const defaultFlushTimeout = 5 * time.Second

// NATSPublisher publishes events on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url. timeout bounds the initial connection.
func NewNATSPublisher(url, subject string, timeout time.Duration) (*NATSPublisher, error) {
	opts := []nats.Option{nats.Name("docprep")}
	if timeout > 0 {
		opts = append(opts, nats.Timeout(timeout))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).Build()
	}
	slog.Debug("NATS publisher connected", slog.String("url", conn.ConnectedUrlRedacted()), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends e and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published run event", logfields.RunID(e.RunID), slog.String("subject", p.subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// RetryingPublisher retries failed publishes with backoff. The caller's
// context bounds the total time spent.
type RetryingPublisher struct {
	next   Publisher
	policy retry.Policy
}

// NewRetryingPublisher wraps next.
func NewRetryingPublisher(next Publisher, policy retry.Policy) *RetryingPublisher {
	return &RetryingPublisher{next: next, policy: policy}
}

func (r *RetryingPublisher) Publish(ctx context.Context, e Event) error {
	attempts := 0
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			slog.Debug("Retrying event publish", logfields.RunID(e.RunID), slog.Int("attempt", attempts))
		}
		return r.next.Publish(ctx, e)
	})
	if err != nil && attempts > 1 {
		return fmt.Errorf("publish failed after %d attempts: %w", attempts, err)
	}
	return err
}

func (r *RetryingPublisher) Close() error { return r.next.Close() }

// MemoryPublisher keeps events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (m *MemoryPublisher) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of the published events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
