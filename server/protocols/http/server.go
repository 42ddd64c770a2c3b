package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	serverName    = "promptvalley-http"
	serverVersion = "0.1.0"
	apiPrefix     = "/api/v1"
)

// Services are the components exposed over HTTP
type Services struct {
	Records  records.Gateway
	Storage  storage.Gateway
	Importer *transfer.Importer
	Exporter *transfer.Exporter
	Library  *medialib.Library
}

// Server represents the HTTP API server
type Server struct {
	cfg       config.HTTPConfig
	services  Services
	app       *fiber.App
	logger    zerolog.Logger
	startTime time.Time
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewServer creates a new HTTP server instance and registers every route
func NewServer(cfg config.HTTPConfig, services Services, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		services:  services,
		logger:    logger.With().Str("component", "http-server").Logger(),
		startTime: time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               serverName,
		DisableStartupMessage: true,
		UnescapePath:          true,
		BodyLimit:             64 * 1024 * 1024,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

// App exposes the fiber application, mainly for in-process tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/status", s.handleStatus)
	s.app.Get("/info", s.handleInfo)

	api := s.app.Group(apiPrefix)

	res := api.Group("/resources/:resource")
	res.Get("/", s.handleListRecords)
	res.Post("/", s.handleCreateRecord)
	res.Get("/count", s.handleCountRecords)
	res.Post("/upsert", s.handleUpsertRecord)
	res.Post("/delete", s.handleDeleteRecords)
	res.Get("/:id", s.handleGetRecord)
	res.Put("/:id", s.handleUpdateRecord)
	res.Delete("/:id", s.handleDeleteRecord)
	api.Post("/query", s.handleQuery)

	buckets := api.Group("/buckets")
	buckets.Get("/", s.handleListBuckets)
	buckets.Post("/", s.handleCreateBucket)
	buckets.Get("/:id", s.handleGetBucket)
	buckets.Patch("/:id", s.handleUpdateBucket)
	buckets.Delete("/:id", s.handleDeleteBucket)
	buckets.Get("/:id/list", s.handleListObjects)
	buckets.Put("/:id/objects/*", s.handleUploadObject)
	buckets.Get("/:id/objects/*", s.handleDownloadObject)
	buckets.Post("/:id/remove", s.handleRemoveObjects)
	s.app.Get("/object/public/:bucket/*", s.handlePublicObject)

	api.Post("/import/:resource", s.handleImport)
	api.Get("/export/:resource", s.handleExport)
	api.Get("/templates/:resource", s.handleTemplate)
	api.Delete("/media/buckets/:id", s.handlePurgeBucket)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()
	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.app.Listen(addr); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Msg("HTTP server started successfully")
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping HTTP server")

	if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
		s.logger.Error().Err(err).Msg("Error during HTTP server shutdown")
	}

	s.wg.Wait()

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// GetType returns the component type identifier
func (s *Server) GetType() string {
	return "http"
}

// Shutdown stops the listener; ctx is unused because Stop applies its own timeout
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Stop()
}

// Address returns the listen address
func (s *Server) Address() string {
	addr := s.cfg.Address
	if addr == "" {
		addr = config.DEFAULT_SERVER_ADDRESS
	}
	port := s.cfg.Port
	if port == 0 {
		port = config.HTTP_SERVER_PORT
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// GetStatus returns server status
func (s *Server) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"running": s.running,
		"address": s.Address(),
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, envelope := Envelope(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("Request failed")
	} else {
		s.logger.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("Request rejected")
	}
	return c.Status(status).JSON(envelope)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server":    serverName,
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "running",
		"server": "http",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"server":   serverName,
		"version":  serverVersion,
		"protocol": "HTTP/1.1",
		"endpoints": []string{
			"GET|POST /api/v1/resources/:resource - List or create records",
			"GET|PUT|DELETE /api/v1/resources/:resource/:id - Read, update or delete a record",
			"POST /api/v1/resources/:resource/upsert - Insert or update by id",
			"POST /api/v1/resources/:resource/delete - Delete by filters",
			"GET /api/v1/resources/:resource/count - Count records",
			"POST /api/v1/query - Run a read-only SQL query",
			"GET|POST /api/v1/buckets - List or create buckets",
			"GET|PATCH|DELETE /api/v1/buckets/:id - Read, update or delete a bucket",
			"GET /api/v1/buckets/:id/list - List a folder",
			"PUT|GET /api/v1/buckets/:id/objects/* - Upload or download an object",
			"POST /api/v1/buckets/:id/remove - Remove objects",
			"GET /object/public/:bucket/* - Serve an object of a public bucket",
			"POST /api/v1/import/:resource - Import a spreadsheet",
			"GET /api/v1/export/:resource - Export a resource",
			"GET /api/v1/templates/:resource - Download an import template",
			"DELETE /api/v1/media/buckets/:id - Purge and delete a bucket",
			"GET /status - Server status",
			"GET /info - Server information",
			"GET /health - Health check",
		},
	})
}
