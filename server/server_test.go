package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	cfg := config.LoadDefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "promptvalley.db")

	srv, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer srv.GetLoader().Close()

	status := srv.GetStatus()
	assert.Contains(t, status, "uptime")
	assert.Equal(t, config.STORAGE_BACKEND_MEMORY, status["backend"])
}

func TestNewServerRejectsUnknownBackend(t *testing.T) {
	cfg := config.LoadDefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "promptvalley.db")
	cfg.Storage.Backend = "ftp"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.True(t, errors.HasCode(err, ErrServerInitFailed))
}
