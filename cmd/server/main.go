package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulseboard/pulseboard/internal/app"
	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/logging"
)

func main() {
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		logging.New(logging.LevelError).Error("Startup failed", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		application.Logger.Info("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		application.Shutdown(shutdownCtx)
	}()

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("HTTP server error", logging.WithField("error", err.Error()))
	}
}
