package filesystem

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/google/uuid"
)

// Package-specific error codes for filesystem storage
var (
	FileStorageSetupFailed      = errors.MustNewCode("filesystem.setup_failed")
	FileStorageCreateFileFailed = errors.MustNewCode("filesystem.create_file_failed")
	FileStorageOpenFileFailed   = errors.MustNewCode("filesystem.open_file_failed")
	FileStorageCreateDirFailed  = errors.MustNewCode("filesystem.create_dir_failed")
	FileStorageReadDirFailed    = errors.MustNewCode("filesystem.read_dir_failed")
)

// Type is the backend name used in configuration
const Type = "filesystem"

// tmpDir holds uploads until they are complete. Bucket names cannot start
// with a dot, so it never collides with a bucket.
const tmpDir = ".tmp"

// FileStorage stores each bucket as a directory under root and each object
// as a file at its key. Directories exist only while they hold objects, so
// listings follow S3 prefix semantics.
type FileStorage struct {
	root string
	mu   sync.RWMutex
}

var _ storage.Backend = (*FileStorage)(nil)

// NewFileStorage creates the root directory when missing
func NewFileStorage(root string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Join(root, tmpDir), 0755); err != nil {
		return nil, errors.New(FileStorageSetupFailed, "failed to create storage root", err).AddContext("path", root)
	}
	return &FileStorage{root: root}, nil
}

// GetStorageType returns the storage type identifier
func (fs *FileStorage) GetStorageType() string {
	return Type
}

func (fs *FileStorage) MakeBucket(ctx context.Context, bucket string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.bucketPath(bucket)
	if _, err := os.Stat(dir); err == nil {
		return errors.New(storage.ErrBucketExists, "The resource already exists", nil).AddContext("bucket", bucket)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return errors.New(FileStorageCreateDirFailed, "failed to create bucket directory", err).AddContext("bucket", bucket)
	}
	return nil
}

func (fs *FileStorage) RemoveBucket(ctx context.Context, bucket string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, err := fs.existingBucket(bucket)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New(FileStorageReadDirFailed, "failed to read bucket directory", err).AddContext("bucket", bucket)
	}
	if len(entries) > 0 {
		return errors.New(storage.ErrBucketNotEmpty, "The bucket you tried to delete is not empty", nil).AddContext("bucket", bucket)
	}
	return os.Remove(dir)
}

// ListObjects reads the directory holding prefix. Sub-directories become
// prefix entries, files become objects.
func (fs *FileStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir, err := fs.existingBucket(bucket)
	if err != nil {
		return nil, err
	}

	parent, namePrefix := "", prefix
	if idx := strings.LastIndex(prefix, "/"); idx != -1 {
		parent, namePrefix = prefix[:idx+1], prefix[idx+1:]
	}

	entries, err := os.ReadDir(filepath.Join(dir, filepath.FromSlash(parent)))
	if os.IsNotExist(err) {
		return []storage.Object{}, nil
	}
	if err != nil {
		return nil, errors.New(FileStorageReadDirFailed, "failed to list objects", err).
			AddContext("bucket", bucket).
			AddContext("prefix", prefix)
	}

	out := make([]storage.Object, 0, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		key := parent + e.Name()
		if e.IsDir() {
			out = append(out, storage.Object{Key: key + "/"})
			continue
		}
		obj, err := fs.stat(bucket, key)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PutObject writes body to a temporary file and renames it into place, so
// readers never see a partial object
func (fs *FileStorage) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.Object, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, err := fs.existingBucket(bucket)
	if err != nil {
		return storage.Object{}, err
	}

	tmp, err := os.CreateTemp(filepath.Join(fs.root, tmpDir), "upload-*")
	if err != nil {
		return storage.Object{}, errors.New(FileStorageCreateFileFailed, "failed to create upload file", err).AddContext("path", key)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return storage.Object{}, errors.New(storage.ErrBackendFailed, "failed to read upload body", err).AddContext("path", key)
	}
	if err := tmp.Close(); err != nil {
		return storage.Object{}, errors.New(FileStorageCreateFileFailed, "failed to write upload file", err).AddContext("path", key)
	}

	target := filepath.Join(dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return storage.Object{}, errors.New(FileStorageCreateDirFailed, "failed to create object directory", err).AddContext("path", key)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return storage.Object{}, errors.New(FileStorageCreateFileFailed, "failed to store object", err).AddContext("path", key)
	}

	obj, err := fs.stat(bucket, key)
	if err != nil {
		return storage.Object{}, err
	}
	if contentType != "" {
		obj.ContentType = contentType
	}
	return obj, nil
}

func (fs *FileStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, storage.Object, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	obj, err := fs.stat(bucket, key)
	if err != nil {
		return nil, storage.Object{}, err
	}
	f, err := os.Open(fs.objectPath(bucket, key))
	if err != nil {
		return nil, storage.Object{}, errors.New(FileStorageOpenFileFailed, "failed to open object", err).AddContext("path", key)
	}
	return f, obj, nil
}

func (fs *FileStorage) StatObject(ctx context.Context, bucket, key string) (storage.Object, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.stat(bucket, key)
}

// RemoveObjects deletes each key and prunes directories left empty
func (fs *FileStorage) RemoveObjects(ctx context.Context, bucket string, keys []string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, err := fs.existingBucket(bucket)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(keys))
	for _, key := range keys {
		err := os.Remove(fs.objectPath(bucket, key))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return removed, errors.New(storage.ErrBackendFailed, "failed to remove object", err).AddContext("path", key)
		}
		removed = append(removed, key)
		fs.prune(dir, path.Dir(key))
	}
	return removed, nil
}

// prune removes rel and its parents while they are empty, stopping at the
// bucket directory
func (fs *FileStorage) prune(bucketDir, rel string) {
	for rel != "." && rel != "/" && rel != "" {
		if err := os.Remove(filepath.Join(bucketDir, filepath.FromSlash(rel))); err != nil {
			return
		}
		rel = path.Dir(rel)
	}
}

func (fs *FileStorage) stat(bucket, key string) (storage.Object, error) {
	if _, err := fs.existingBucket(bucket); err != nil {
		return storage.Object{}, err
	}
	info, err := os.Stat(fs.objectPath(bucket, key))
	if err != nil || info.IsDir() {
		return storage.Object{}, errors.New(storage.ErrObjectNotFound, "Object not found", nil).
			AddContext("bucket", bucket).
			AddContext("path", key)
	}
	return storage.Object{
		ID:           objectID(bucket, key),
		Key:          key,
		Size:         info.Size(),
		ContentType:  storage.DetectContentType(key),
		ETag:         fileETag(info),
		LastModified: info.ModTime().UTC(),
	}, nil
}

func (fs *FileStorage) existingBucket(bucket string) (string, error) {
	dir := fs.bucketPath(bucket)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", errors.New(storage.ErrBucketNotFound, "Bucket not found", nil).AddContext("bucket", bucket)
	}
	return dir, nil
}

func (fs *FileStorage) bucketPath(bucket string) string {
	return filepath.Join(fs.root, bucket)
}

func (fs *FileStorage) objectPath(bucket, key string) string {
	return filepath.Join(fs.root, bucket, filepath.FromSlash(key))
}

// objectID is stable for a key so overwrites keep their identity
func objectID(bucket, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(bucket+"/"+key)).String()
}

// fileETag changes whenever size or modification time does
func fileETag(info os.FileInfo) string {
	sum := md5.Sum([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10) + "-" + strconv.FormatInt(info.Size(), 10)))
	return hex.EncodeToString(sum[:])
}
