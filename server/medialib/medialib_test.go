package medialib

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *storage.Service
	backend *memory.MemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := records.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	backend := memory.NewMemoryStorage()
	return &fixture{
		service: storage.NewService(backend, storage.NewBucketStore(store.DB()), "http://cdn.test", zerolog.Nop()),
		backend: backend,
	}
}

func (f *fixture) library(concurrency, listLimit int) *Library {
	return NewLibrary(f.service, &config.MediaConfig{DeleteConcurrency: concurrency, ListLimit: listLimit}, zerolog.Nop())
}

func (f *fixture) bucket(t *testing.T, name string, paths ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.CreateBucket(ctx, name, storage.BucketOptions{})
	require.NoError(t, err)
	for _, p := range paths {
		_, err := f.service.Upload(ctx, name, p, strings.NewReader("x"), 1, storage.UploadOptions{})
		require.NoError(t, err)
	}
}
