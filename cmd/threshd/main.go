package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"threshd/internal/config"
	"threshd/internal/logger"
	"threshd/internal/service"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Init("info")
		logger.Logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	svc, err := service.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// run service in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	// wait for termination signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info().Msg("shutting down")
		cancel()
		if err := <-errCh; err != nil {
			log.Error().Err(err).Msg("service exited with error")
		}
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("service exited")
		}
		cancel()
	}

	log.Info().Msg("exited")
}
