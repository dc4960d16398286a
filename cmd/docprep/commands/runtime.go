package commands

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docprep/internal/config"
	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
	"git.home.luguber.info/inful/docprep/internal/history"
	"git.home.luguber.info/inful/docprep/internal/logfields"
	"git.home.luguber.info/inful/docprep/internal/metrics"
	"git.home.luguber.info/inful/docprep/internal/notify"
	"git.home.luguber.info/inful/docprep/internal/prepare"
)

// runtime owns the resources behind a prepare.Service.
type runtime struct {
	opts     prepare.Options
	registry *prometheus.Registry
	store    history.Store
	pub      notify.Publisher
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{opts: prepare.Options{Config: cfg}}

	if cfg.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		rt.opts.Recorder = metrics.NewPrometheusRecorder(rt.registry)
	}

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "open run history").
				WithContext("path", cfg.Resolve(cfg.History.Path)).Build()
		}
		rt.store = store
		rt.opts.History = store
	}

	if cfg.Notify.Enabled {
		pub, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject, cfg.NotifyTimeout())
		if err != nil {
			// Notifications never fail a run.
			slog.Warn("Notifications disabled", slog.String("url", cfg.Notify.URL), logfields.Error(err))
		} else {
			rt.pub = notify.NewRetryingPublisher(pub, cfg.NotifyRetry())
			rt.opts.Publisher = rt.pub
		}
	}
	return rt, nil
}

func (rt *runtime) service() *prepare.Service {
	return prepare.NewService(rt.opts)
}

// withConfig returns a service for cfg that shares this runtime's resources.
func (rt *runtime) withConfig(cfg *config.Config) *prepare.Service {
	opts := rt.opts
	opts.Config = cfg
	return prepare.NewService(opts)
}

// writeTextfile exports the registry for the node_exporter textfile collector.
func (rt *runtime) writeTextfile(cfg *config.Config) {
	if rt.registry == nil || cfg.Metrics.Textfile == "" {
		return
	}
	path := cfg.Resolve(cfg.Metrics.Textfile)
	if err := prometheus.WriteToTextfile(path, rt.registry); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

func (rt *runtime) Close() {
	if rt.pub != nil {
		if err := rt.pub.Close(); err != nil {
			slog.Warn("Failed to close notification publisher", logfields.Error(err))
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("Failed to close run history", logfields.Error(err))
		}
	}
}
