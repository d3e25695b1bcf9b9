// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/soptranslator/internal/apperr"
	"github.com/starford/soptranslator/internal/llm"
	"github.com/starford/soptranslator/internal/translator"
	"github.com/starford/soptranslator/internal/watch"
)

// Run translates the configured input once, or keeps translating it on
// every change in watch mode. The returned error classifies the run via
// apperr.OutcomeOf.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{output: os.Stderr}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.input == "" {
		return fmt.Errorf("input is required")
	}

	cfg := app.config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logger := newLogger(app.output, cfg.App)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("model", cfg.Model.Name),
		slog.String("api", cfg.Model.API),
		slog.String("endpoint", cfg.Model.Endpoint),
		slog.String("repo_root", cfg.App.RepoRoot),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client := app.client
	if client == nil {
		c, err := llm.New(cfg.Model.Settings())
		if err != nil {
			return fmt.Errorf("init model client: %w", err)
		}
		client = c
	}

	logger.Info("using model",
		slog.String("model", cfg.Model.Name),
		slog.String("endpoint", cfg.Model.Endpoint))

	tr := translator.New(client, cfg.Translator(), logger)

	if !app.watch {
		_, err := tr.Run(ctx, app.input)
		return err
	}

	return runWatch(ctx, tr, app.input, cfg.Watch, logger)
}

func runWatch(ctx context.Context, tr *translator.Translator, input string, cfg WatchConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return watch.Watch(gCtx, input, cfg.Debounce, logger, func(runCtx context.Context) {
			report, err := tr.Run(runCtx, input)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("translation run finished with errors",
					slog.String("outcome", report.Outcome.String()),
					slog.String("error", err.Error()))
				return
			}
			logger.Info("translation run finished", slog.String("outcome", report.Outcome.String()))
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("watch error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ExitCode maps an error returned by Run to a process exit status.
func ExitCode(err error) int {
	return apperr.OutcomeOf(err).ExitCode()
}
