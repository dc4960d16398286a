package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docprep/internal/config"
	"git.home.luguber.info/inful/docprep/internal/logfields"
	"git.home.luguber.info/inful/docprep/internal/metrics"
	"git.home.luguber.info/inful/docprep/internal/prepare"
	"git.home.luguber.info/inful/docprep/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Force     bool `help:"Run extraction on every change even when the gate variable is not set"`
	NoInitial bool `name:"no-initial" help:"Skip the preparation at startup"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := setup(g, root)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath, _ := filepath.Abs(root.Config)
	paths := watchPaths(cfg, configPath)
	ignore := []string{cfg.ConfPyPath()}

	var (
		mu      sync.Mutex
		watcher *watch.Watcher
	)
	svc := rt.service()
	run := func(ctx context.Context, trigger watch.Trigger, changed []string) error {
		mu.Lock()
		if slices.Contains(changed, configPath) {
			// Keep the previous configuration when the edited file is invalid.
			if next, err := root.loadConfig(); err != nil {
				slog.Error("Configuration reload failed", logfields.Path(configPath), logfields.Error(err))
			} else {
				svc = rt.withConfig(next)
				slog.Info("Configuration reloaded", logfields.Path(configPath))
				nextPaths, nextIgnore := watchPaths(next, configPath), []string{next.ConfPyPath()}
				if next.WatchDebounce() != cfg.WatchDebounce() || next.WatchRefresh() != cfg.WatchRefresh() {
					slog.Warn("Watch debounce and refresh changes apply after restart")
				}
				if !slices.Equal(paths, nextPaths) || !slices.Equal(ignore, nextIgnore) {
					if err := watcher.Reset(nextPaths, nextIgnore); err != nil {
						slog.Error("Failed to update watch paths", logfields.Error(err))
					} else {
						paths, ignore = nextPaths, nextIgnore
					}
				}
			}
		}
		current := svc
		mu.Unlock()

		rep, err := current.Prepare(ctx, prepare.Request{Force: w.Force})
		rt.writeTextfile(current.Config())
		if rep != nil {
			slog.Debug("Watch run report",
				slog.String("trigger", string(trigger)),
				slog.String("outcome", string(rep.Outcome)),
				slog.Bool("changed", rep.Changed))
		}
		return err
	}

	watcher, err = watch.New(watch.Options{
		Paths:      paths,
		Debounce:   cfg.WatchDebounce(),
		Refresh:    cfg.WatchRefresh(),
		RunOnStart: !w.NoInitial,
		Ignore:     ignore,
		Run:        run,
	})
	if err != nil {
		return err
	}

	if rt.registry != nil && cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsMux(rt),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err = watcher.Run(ctx)
	slog.Info("Watch stopped", slog.Int("runs", watcher.Runs()))
	return err
}

// watchPaths is the configured watch set plus the configuration file itself.
func watchPaths(cfg *config.Config, configPath string) []string {
	paths := cfg.WatchPaths()
	if _, err := os.Stat(configPath); err == nil {
		paths = append(paths, configPath)
	}
	return paths
}

func metricsMux(rt *runtime) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(rt.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
