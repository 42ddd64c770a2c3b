package loader

import (
	"context"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/gear6io/promptvalley/server/protocols/http"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/server/shared"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/storage/filesystem"
	"github.com/gear6io/promptvalley/server/storage/memory"
	"github.com/gear6io/promptvalley/server/storage/minio"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/rs/zerolog"
)

// Loader initializes and manages all core components
type Loader struct {
	config     *config.Config
	store      *records.Store
	backend    storage.Backend
	storage    *storage.Service
	importer   *transfer.Importer
	exporter   *transfer.Exporter
	library    *medialib.Library
	browser    *medialib.Browser
	httpServer *http.Server
	logger     zerolog.Logger

	// components in start order; Stop shuts them down in reverse
	components []shared.Component
}

// NewLoader opens the catalog database, builds the object backend and wires
// the import/export and media services on top
func NewLoader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Loader, error) {
	l := &Loader{
		config: cfg,
		logger: logger.With().Str("component", "loader").Logger(),
	}

	store, err := records.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return nil, errors.New(ErrComponentInitFailed, "failed to open catalog database", err).
			AddContext("component", "records")
	}
	l.store = store

	backend, err := NewBackend(&cfg.Storage, logger)
	if err != nil {
		store.Close()
		return nil, errors.New(ErrComponentInitFailed, "failed to create storage backend", err).
			AddContext("component", "storage")
	}
	l.backend = backend

	l.storage = storage.NewService(backend, storage.NewBucketStore(store.DB()), cfg.Storage.PublicURL, logger)
	l.importer = transfer.NewImporter(store, cfg.Transfer.ValidationChunk, logger)
	l.exporter = transfer.NewExporter(store, cfg.Transfer.PageSize, logger)
	l.library = medialib.NewLibrary(l.storage, &cfg.Media, logger)
	l.browser = medialib.NewBrowser(l.storage, cfg.Media.ListLimit, logger)

	l.httpServer, err = http.NewServer(cfg.HTTP, http.Services{
		Records:  store,
		Storage:  l.storage,
		Importer: l.importer,
		Exporter: l.exporter,
		Library:  l.library,
	}, logger)
	if err != nil {
		store.Close()
		return nil, errors.New(ErrComponentInitFailed, "failed to create HTTP server", err).
			AddContext("component", "http")
	}

	l.components = []shared.Component{store, l.httpServer}

	l.logger.Info().
		Str("database", cfg.Database.Path).
		Str("backend", cfg.Storage.Backend).
		Msg("Components initialized")
	return l, nil
}

// NewBackend builds the object backend selected by cfg.Backend
func NewBackend(cfg *config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case config.STORAGE_BACKEND_MEMORY, "":
		return memory.NewMemoryStorage(), nil
	case config.STORAGE_BACKEND_FILESYSTEM:
		return filesystem.NewFileStorage(cfg.DataPath)
	case config.STORAGE_BACKEND_MINIO:
		return minio.NewS3FileSystem(&cfg.Minio, logger)
	}
	return nil, errors.New(ErrUnknownBackend, "unknown storage backend", nil).AddContext("backend", cfg.Backend)
}

// Start starts the HTTP API
func (l *Loader) Start(ctx context.Context) error {
	l.logger.Info().Msg("Starting Loader...")

	if err := l.httpServer.Start(ctx); err != nil {
		return errors.New(ErrHTTPStartFailed, "failed to start HTTP server", err)
	}

	l.logger.Info().Msg("Loader started successfully")
	return nil
}

// Stop gracefully shuts down all components
func (l *Loader) Stop() error {
	l.logger.Info().Msg("Stopping Loader...")

	ctx := context.Background()
	for i := len(l.components) - 1; i >= 0; i-- {
		c := l.components[i]
		if err := c.Shutdown(ctx); err != nil {
			l.logger.Error().Err(err).Str("component", c.GetType()).Msg("Error stopping component")
		}
	}

	l.logger.Info().Msg("Loader stopped successfully")
	return nil
}

// Close releases the catalog database without touching the HTTP server,
// for callers that never started it
func (l *Loader) Close() error {
	return l.store.Close()
}

// GetConfig returns the configuration
func (l *Loader) GetConfig() *config.Config {
	return l.config
}

// GetRecords returns the catalog record store
func (l *Loader) GetRecords() *records.Store {
	return l.store
}

// GetStorage returns the storage service
func (l *Loader) GetStorage() *storage.Service {
	return l.storage
}

// GetImporter returns the spreadsheet importer
func (l *Loader) GetImporter() *transfer.Importer {
	return l.importer
}

// GetExporter returns the spreadsheet exporter
func (l *Loader) GetExporter() *transfer.Exporter {
	return l.exporter
}

// GetLibrary returns the media bucket library
func (l *Loader) GetLibrary() *medialib.Library {
	return l.library
}

// GetBrowser returns the media file browser
func (l *Loader) GetBrowser() *medialib.Browser {
	return l.browser
}

// GetHTTPServer returns the HTTP server
func (l *Loader) GetHTTPServer() *http.Server {
	return l.httpServer
}

// GetSheets builds a Google Sheets source from the configured credentials
func (l *Loader) GetSheets(ctx context.Context) (*sheet.GoogleSource, error) {
	return sheet.NewGoogleSource(ctx, &l.config.Sheets)
}

// GetStatus returns the status of all components
func (l *Loader) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"database": l.config.Database.Path,
		"backend":  l.config.Storage.Backend,
		"http":     l.httpServer.GetStatus(),
	}
}
