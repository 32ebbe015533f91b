// Command stepformd serves the stepform application: server-rendered
// multi-step form pages backed by a remote form API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/stepform/stepform/internal/server"
	"github.com/stepform/stepform/pkg/backend"
	"github.com/stepform/stepform/pkg/config"
	"github.com/stepform/stepform/pkg/logging"
	"github.com/stepform/stepform/pkg/shutdown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stepformd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := logging.NewSlogLogger(
		logging.WithLevel(level),
		logging.WithJSON(),
	)

	be := backend.NewClient(cfg.BackendURL,
		backend.WithTimeout(cfg.ClientTimeout),
		backend.WithLogger(logger.With(logging.String("component", "backend"))))

	srv, err := server.New(cfg, be, logger)
	if err != nil {
		return err
	}

	handler := shutdown.NewHandler(shutdown.Config{
		Timeout: 30 * time.Second,
		OnHookComplete: func(name string, err error, elapsed time.Duration) {
			if err != nil {
				logger.Error("shutdown hook failed",
					logging.String("hook", name), logging.Err(err))
				return
			}
			logger.Info("shutdown hook done",
				logging.String("hook", name), logging.Duration("elapsed", elapsed))
		},
	})
	handler.RegisterFunc("http", shutdown.PriorityHTTP, func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	go func() {
		if err := handler.Wait(); err != nil {
			logger.Error("shutdown", logging.Err(err))
		}
	}()

	if err := <-errCh; err != nil {
		return err
	}
	<-handler.Done()
	logger.Info("stopped")
	return nil
}
