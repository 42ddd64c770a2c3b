package server

import (
	"context"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/loader"
	"github.com/rs/zerolog"
)

// Server-specific error codes
var (
	ErrServerInitFailed  = errors.MustNewCode("server.init_failed")
	ErrServerStartFailed = errors.MustNewCode("server.start_failed")
)

// shutdownTimeout bounds a graceful shutdown
const shutdownTimeout = 30 * time.Second

// Server represents the main server: the loaded components plus the HTTP API
type Server struct {
	config    *config.Config
	loader    *loader.Loader
	logger    zerolog.Logger
	startTime time.Time
}

// New creates a new server instance
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	l, err := loader.NewLoader(ctx, cfg, logger)
	if err != nil {
		return nil, errors.New(ErrServerInitFailed, "failed to load components", err)
	}

	return &Server{
		config:    cfg,
		loader:    l,
		logger:    logger.With().Str("component", "server").Logger(),
		startTime: time.Now(),
	}, nil
}

// Start starts the HTTP API
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting PromptValley server...")

	if err := s.loader.Start(ctx); err != nil {
		return errors.New(ErrServerStartFailed, "failed to start server", err)
	}

	s.logger.Info().
		Str("http_address", s.config.GetHTTPAddress()).
		Str("storage_backend", s.config.Storage.Backend).
		Str("database", s.config.Database.Path).
		Msg("All servers started")
	return nil
}

// Shutdown gracefully shuts down the server, giving up after a timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server...")

	done := make(chan struct{})
	go func() {
		if err := s.loader.Stop(); err != nil {
			s.logger.Error().Err(err).Msg("Error stopping components")
		}
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Graceful shutdown completed")
	case <-time.After(shutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout, forcing close")
	}
	return nil
}

// GetLoader returns the loaded components
func (s *Server) GetLoader() *loader.Loader {
	return s.loader
}

// GetUptime returns the server uptime
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}

// GetStatus returns the server status
func (s *Server) GetStatus() map[string]interface{} {
	status := s.loader.GetStatus()
	status["uptime"] = s.GetUptime().String()
	status["start_time"] = s.startTime
	return status
}
