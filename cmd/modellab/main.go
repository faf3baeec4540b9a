package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/modellab/internal/adapters/http/api"
	"github.com/okian/modellab/internal/adapters/http/site"
	"github.com/okian/modellab/internal/adapters/http/swagger"
	"github.com/okian/modellab/internal/adapters/repository"
	service "github.com/okian/modellab/internal/app"
	"github.com/okian/modellab/internal/config"
	"github.com/okian/modellab/pkg/logger"
	"github.com/okian/modellab/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

var errApplierStopped = errors.New("edit applier stopped unexpectedly")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "modellab: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.LogFormat == "json" {
		if err := logger.Init(logger.WithJSON()); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var opts []repository.Option
	if cfg.DatasetStrict {
		opts = append(opts, repository.WithStrictKeys())
	}
	ds, err := repository.Open(cfg.DatasetPath, opts...).Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	source := cfg.DatasetPath
	if source == "" {
		source = "embedded sample"
	}
	log.Info(ctx, "dataset loaded",
		logger.String("source", source),
		logger.Int("entities", len(ds.Entities)),
		logger.Int("matchups", len(ds.Matchups)),
	)

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithDataset(ds),
		service.WithQueueSize(cfg.EditQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithNotableShift(cfg.NotableShift),
		service.WithModifiedTolerance(cfg.ModifiedTolerance),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg.MaxRankingsLimit),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-svc.Done():
			return errApplierStopped
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// newMux registers the docs, API and landing page routes.
func newMux(ctx context.Context, svc *service.Service, maxRankingsLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, maxRankingsLimit).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	updateSystemMetrics()
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
