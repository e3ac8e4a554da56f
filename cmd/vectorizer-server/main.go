package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"universal-vectorizer/internal/config"
	"universal-vectorizer/internal/logging"
	"universal-vectorizer/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
