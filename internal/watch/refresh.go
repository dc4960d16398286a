package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// refresher fires fn on a fixed interval.
type refresher struct {
	scheduler gocron.Scheduler
}

func newRefresher(interval time.Duration, fn func()) (*refresher, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName("docprep-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create refresh job: %w", err)
	}
	return &refresher{scheduler: s}, nil
}

func (r *refresher) start() {
	slog.Debug("Starting refresh scheduler")
	r.scheduler.Start()
}

// stop waits for a running job to return.
func (r *refresher) stop() error {
	return r.scheduler.Shutdown()
}
