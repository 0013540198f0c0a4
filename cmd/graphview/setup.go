package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-graphview/pkg/backend"
	"github.com/dd0wney/cluso-graphview/pkg/config"
	"github.com/dd0wney/cluso-graphview/pkg/engine"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/prefs"
)

var errNoSource = errors.New("no graph source: set backend.url, GRAPHVIEW_BACKEND_URL, --file or --demo")

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}
	if snapFile != "" {
		cfg.Backend.SnapshotFile = snapFile
	}
	return cfg, cfg.Validate()
}

// newLogger writes JSON lines to path, or to w when path is empty. A nil w
// with no path discards everything.
func newLogger(cfg *config.Config, path string, w io.Writer) (logging.Logger, io.Closer, error) {
	if path == "" {
		path = cfg.Log.File
	}
	if path != "" {
		l, closer, err := logging.NewFileLogger(path, cfg.LogLevel())
		if err != nil {
			return nil, nil, err
		}
		return l, closer, nil
	}
	if w == nil {
		return logging.NewNopLogger(), nopCloser{}, nil
	}
	return logging.NewJSONLogger(w, cfg.LogLevel()), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore opens the configured preference store. The returned close
// function is never nil.
func openStore(cfg *config.Config, logger logging.Logger) (prefs.Store, func() error, error) {
	noop := func() error { return nil }
	if cfg.Prefs.Backend == config.PrefsMemory {
		return prefs.NewMemoryStore(), noop, nil
	}

	dir, err := cfg.PrefsDir()
	if err != nil {
		return nil, noop, err
	}
	switch cfg.Prefs.Backend {
	case config.PrefsBadger:
		s, err := prefs.OpenBadgerStore(prefs.BadgerConfig{
			Path:   filepath.Join(dir, "badger"),
			Logger: logger,
		}, cfg.Workspace)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		s, err := prefs.NewFileStore(dir, cfg.Workspace)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}
}

// sources is where graphs come from and where link edits go.
type sources struct {
	graph backend.GraphSource
	links backend.LinkService
	file  *backend.FileSource
}

func openSources(cfg *config.Config, logger logging.Logger) (sources, error) {
	switch {
	case demoNodes > 0:
		mem := backend.NewMemory(backend.DemoSnapshot(rand.New(rand.NewPCG(demoSeed, demoSeed+1)), demoNodes))
		return sources{graph: mem, links: mem}, nil

	case cfg.Backend.SnapshotFile != "":
		fs := backend.NewFileSource(cfg.Backend.SnapshotFile, logger)
		return sources{graph: fs, links: backend.ReadOnlyLinks{}, file: fs}, nil

	case cfg.Backend.URL != "":
		client, err := backend.NewHTTPClient(cfg.Backend.URL, cfg.Workspace, backend.WithTimeout(cfg.Backend.Timeout))
		if err != nil {
			return sources{}, err
		}
		return sources{graph: client, links: client}, nil
	}
	return sources{}, errNoSource
}

// engineOptions maps the config onto engine options.
func engineOptions(cfg *config.Config, logger logging.Logger, reg *metrics.Registry) []engine.Option {
	opts := []engine.Option{
		engine.WithSize(cfg.View.Width, cfg.View.Height),
		engine.WithLogger(logger),
		engine.WithMetrics(reg),
		engine.WithDebounce(cfg.Prefs.Debounce),
		engine.WithOptimisticTTL(cfg.View.OptimisticTTL),
		engine.WithHopDepth(cfg.View.HopDepth),
		engine.WithFetchLimit(cfg.View.FetchLimit),
		engine.WithParameters(cfg.Parameters()),
	}
	if demoNodes > 0 {
		opts = append(opts, engine.WithRand(rand.New(rand.NewPCG(demoSeed, demoSeed^0x9e3779b9))))
	}
	return opts
}

// bootstrap fetches the first snapshot and loads stored preferences in
// parallel, then applies both. Preference failures only warn; a failed
// fetch is returned and the engine keeps an empty graph.
func bootstrap(ctx context.Context, e *engine.Engine, src backend.GraphSource, limit int, logger logging.Logger) error {
	start := time.Now()
	var snap graph.Snapshot

	var g errgroup.Group
	g.Go(func() error {
		var err error
		snap, err = src.FetchSnapshot(ctx, backend.FetchRequest{Limit: limit})
		return err
	})
	g.Go(func() error {
		if err := e.LoadPreferences(ctx); err != nil {
			logger.Warn("starting without stored preferences", logging.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initial fetch: %w", err)
	}

	e.Update(snap, graph.Filters{}, graph.FocusMode{})
	logger.Info("graph loaded",
		logging.Int("nodes", len(e.Nodes())),
		logging.Int("edges", len(e.Edges())),
		logging.Latency(time.Since(start)))
	return nil
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *metrics.Registry, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", logging.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
