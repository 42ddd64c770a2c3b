package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/utils"
)

type object struct {
	info storage.Object
	data []byte
}

// MemoryStorage is an in-process object store with S3 listing semantics.
// It backs tests and single-node development setups.
type MemoryStorage struct {
	buckets map[string]map[string]*object
	mu      sync.RWMutex
}

var _ storage.Backend = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty object store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		buckets: make(map[string]map[string]*object),
	}
}

func (m *MemoryStorage) MakeBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; ok {
		return errors.New(storage.ErrBucketExists, "The resource already exists", nil).AddContext("bucket", bucket)
	}
	m.buckets[bucket] = make(map[string]*object)
	return nil
}

func (m *MemoryStorage) RemoveBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return bucketNotFound(bucket)
	}
	if len(objects) > 0 {
		return errors.New(storage.ErrBucketNotEmpty, "The bucket you tried to delete is not empty", nil).AddContext("bucket", bucket)
	}
	delete(m.buckets, bucket)
	return nil
}

// ListObjects returns keys directly under prefix plus one prefix entry per
// sub-folder, sorted by key
func (m *MemoryStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, bucketNotFound(bucket)
	}

	seen := make(map[string]struct{})
	var out []storage.Object
	for key, obj := range objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if idx := strings.Index(rest, "/"); idx != -1 {
			sub := prefix + rest[:idx+1]
			if _, dup := seen[sub]; !dup {
				seen[sub] = struct{}{}
				out = append(out, storage.Object{Key: sub})
			}
			continue
		}
		out = append(out, obj.info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStorage) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Object{}, errors.New(storage.ErrBackendFailed, "failed to read upload body", err).AddContext("path", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return storage.Object{}, bucketNotFound(bucket)
	}

	id := utils.NewRunID()
	if existing, ok := objects[key]; ok {
		id = existing.info.ID
	}

	obj := &object{
		info: storage.Object{
			ID:           id,
			Key:          key,
			Size:         int64(len(data)),
			ContentType:  contentType,
			ETag:         etag(data),
			LastModified: time.Now().UTC(),
		},
		data: data,
	}
	objects[key] = obj
	return obj.info, nil
}

func (m *MemoryStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, storage.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucket, key)
	if err != nil {
		return nil, storage.Object{}, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *MemoryStorage) StatObject(ctx context.Context, bucket, key string) (storage.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucket, key)
	if err != nil {
		return storage.Object{}, err
	}
	return obj.info, nil
}

func (m *MemoryStorage) RemoveObjects(ctx context.Context, bucket string, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, bucketNotFound(bucket)
	}

	removed := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := objects[key]; ok {
			delete(objects, key)
			removed = append(removed, key)
		}
	}
	return removed, nil
}

// ObjectCount returns the number of objects held in bucket
func (m *MemoryStorage) ObjectCount(bucket string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets[bucket])
}

func (m *MemoryStorage) lookup(bucket, key string) (*object, error) {
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, bucketNotFound(bucket)
	}
	obj, ok := objects[key]
	if !ok {
		return nil, errors.New(storage.ErrObjectNotFound, "Object not found", nil).
			AddContext("bucket", bucket).
			AddContext("path", key)
	}
	return obj, nil
}

func bucketNotFound(bucket string) error {
	return errors.New(storage.ErrBucketNotFound, "Bucket not found", nil).AddContext("bucket", bucket)
}
