package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gear6io/promptvalley/server"
	"github.com/gear6io/promptvalley/server/config"
)

func main() {
	cfg, cfgErr := config.LoadConfigOrDefault(config.DEFAULT_CONFIG_FILE)
	if cfgErr != nil {
		cfg = config.LoadDefaultConfig()
	}

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to setup logger: %v", err))
	}

	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("Using default configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create server")
		os.Exit(1)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info().Msg("Shutting down promptvalley server...")
		cancel()
	}()

	logger.Info().Msg("Starting promptvalley server...")
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
		os.Exit(1)
	}

	<-ctx.Done()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	logger.Info().Msg("Server stopped gracefully")
}
