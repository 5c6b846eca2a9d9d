package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"abforge/internal/api"
	"abforge/internal/config"
	"abforge/internal/job"
	"abforge/internal/pipeline"
	"abforge/internal/precheck"
	"abforge/internal/procexec"
)

// serveCmd exposes the pipeline as an HTTP service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the design pipeline over HTTP",
	Long: `Starts the HTTP API: submit design jobs, poll their status, and download
result structures. Jobs execute strictly one at a time on a background
worker whose lifecycle is tied to the server's.

Shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fail early on broken stage configuration rather than on first job.
	if _, err := buildOrchestrator(); err != nil {
		return err
	}
	runFunc := func(ctx context.Context, spec pipeline.RunSpec, progress func(string)) (*pipeline.RunReport, error) {
		orch, err := buildOrchestrator(pipeline.WithProgress(progress))
		if err != nil {
			return nil, err
		}
		return orch.Run(ctx, spec)
	}

	jobs := job.NewManager(cfg, runFunc, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	// Health reporting only needs the file checks; import probes are too
	// slow for a liveness endpoint.
	checker := precheck.NewChecker(
		procexec.NewHostExecutor(logger),
		logger,
		cfg.WeightsDir,
		cfg.ExamplesDir,
		nil, nil,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(logger, jobs, checker),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Server.Reload {
		if cfgPath == "" {
			logger.Info("config reload enabled but no config file given, skipping watch")
		} else {
			g.Go(func() error {
				return watchConfig(gctx, cfgPath)
			})
		}
	}

	return g.Wait()
}

// watchConfig re-reads the config file on change and applies the settings
// that are safe to change live. Watch failures are logged, never fatal.
func watchConfig(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch unavailable", zap.Error(err))
		return nil
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		logger.Warn("config watch unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Info("watching config file", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloadConfig(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watch error", zap.Error(err))
		}
	}
}

func reloadConfig(path string) {
	fresh, err := config.Load(path)
	if err != nil {
		logger.Warn("config reload failed", zap.Error(err))
		return
	}

	level := zapcore.InfoLevel
	if fresh.Logging.Level != "" {
		if level, err = zapcore.ParseLevel(fresh.Logging.Level); err != nil {
			logger.Warn("config reload: bad log level", zap.String("level", fresh.Logging.Level))
			return
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	logLevel.SetLevel(level)
	logger.Info("config reloaded", zap.String("log_level", level.String()))
}
