package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"orderflow/cmd"
	"orderflow/internal/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cmd.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		ServiceName: "orderflow",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cmd.NewCompositionRoot(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("close connections")
		}
	}()

	background := app.RunBackground(ctx)

	if cfg.Jobs.Enabled {
		jobManager, err := app.CreateJobManager()
		if err != nil {
			return err
		}
		if err := jobManager.StartAll(); err != nil {
			return err
		}
		defer jobManager.StopAll()
	}

	return serve(ctx, app, cfg.App.HTTPPort, background, log)
}

func serve(ctx context.Context, app *cmd.CompositionRoot, port string, background <-chan error, log zerolog.Logger) error {
	server := app.CreateOpsServer()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(fmt.Sprintf("0.0.0.0:%s", port))
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-serverErr:
	case runErr = <-background:
		if ctx.Err() != nil {
			runErr = nil
		} else if runErr == nil {
			runErr = errors.New("background worker stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown ops server")
	}
	return runErr
}
