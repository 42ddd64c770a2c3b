package minio

import (
	"context"
	"io"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// S3 error codes returned by MinIO and compatible servers
const (
	codeNoSuchBucket       = "NoSuchBucket"
	codeNoSuchKey          = "NoSuchKey"
	codeBucketExists       = "BucketAlreadyExists"
	codeBucketOwnedByYou   = "BucketAlreadyOwnedByYou"
	codeBucketNotEmpty     = "BucketNotEmpty"
	codeNotFoundStatusText = "NotFound"
)

// objectNamespace seeds the stable object ids derived from bucket and key
var objectNamespace = uuid.MustParse("6f0c7b1e-3a52-4c47-9c2e-6a0d3f6b9e11")

// FileSystem is a storage.Backend on top of an S3-compatible server
type FileSystem struct {
	client *minio.Client
	region string
	logger zerolog.Logger
}

var _ storage.Backend = (*FileSystem)(nil)

// NewS3FileSystem connects to the configured endpoint. Path-style bucket
// lookup is forced so that local MinIO and test servers work without DNS.
func NewS3FileSystem(cfg *config.MinioConfig, logger zerolog.Logger) (*FileSystem, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(ErrEndpointRequired, "minio endpoint is required", nil)
	}

	region := cfg.Region
	if region == "" {
		region = config.DEFAULT_STORAGE_REGION
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.New(ErrClientCreationFailed, "failed to create minio client", err).
			AddContext("endpoint", cfg.Endpoint)
	}

	return &FileSystem{
		client: client,
		region: region,
		logger: logger.With().Str("component", "minio").Logger(),
	}, nil
}

func (fs *FileSystem) MakeBucket(ctx context.Context, bucket string) error {
	err := fs.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: fs.region})
	return fs.translate(err, bucket, "")
}

func (fs *FileSystem) RemoveBucket(ctx context.Context, bucket string) error {
	return fs.translate(fs.client.RemoveBucket(ctx, bucket), bucket, "")
}

// ListObjects lists one level below prefix using the "/" delimiter
func (fs *FileSystem) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	var out []storage.Object
	for info := range fs.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if info.Err != nil {
			return nil, fs.translate(info.Err, bucket, prefix)
		}
		if strings.HasSuffix(info.Key, "/") {
			out = append(out, storage.Object{Key: info.Key})
			continue
		}
		out = append(out, fs.object(bucket, info))
	}
	return out, nil
}

func (fs *FileSystem) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.Object, error) {
	if size <= 0 {
		size = -1
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := fs.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return storage.Object{}, fs.translate(err, bucket, key)
	}

	// Stat so the returned metadata matches what a later listing reports
	return fs.StatObject(ctx, bucket, key)
}

func (fs *FileSystem) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, storage.Object, error) {
	info, err := fs.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, storage.Object{}, fs.translate(err, bucket, key)
	}

	obj, err := fs.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, storage.Object{}, fs.translate(err, bucket, key)
	}
	return obj, fs.object(bucket, info), nil
}

func (fs *FileSystem) StatObject(ctx context.Context, bucket, key string) (storage.Object, error) {
	info, err := fs.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.Object{}, fs.translate(err, bucket, key)
	}
	return fs.object(bucket, info), nil
}

// RemoveObjects deletes the existing keys in one multi-object delete call.
// S3 treats deleting a missing key as success, so keys are checked first.
func (fs *FileSystem) RemoveObjects(ctx context.Context, bucket string, keys []string) ([]string, error) {
	existing := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, err := fs.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
			translated := fs.translate(err, bucket, key)
			if errors.HasCode(translated, storage.ErrObjectNotFound) {
				continue
			}
			return nil, translated
		}
		existing = append(existing, key)
	}
	if len(existing) == 0 {
		return []string{}, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(existing))
	for _, key := range existing {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	failed := make(map[string]error)
	for rerr := range fs.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		failed[rerr.ObjectName] = rerr.Err
		fs.logger.Warn().Err(rerr.Err).Str("bucket", bucket).Str("path", rerr.ObjectName).Msg("Failed to remove object")
	}

	removed := make([]string, 0, len(existing))
	for _, key := range existing {
		if _, ok := failed[key]; !ok {
			removed = append(removed, key)
		}
	}
	if len(failed) > 0 {
		return removed, errors.Newf(storage.ErrBackendFailed, "failed to remove %d objects", len(failed)).
			AddContext("bucket", bucket)
	}
	return removed, nil
}

func (fs *FileSystem) object(bucket string, info minio.ObjectInfo) storage.Object {
	return storage.Object{
		ID:           ObjectID(bucket, info.Key),
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         strings.Trim(info.ETag, `"`),
		LastModified: info.LastModified.UTC(),
	}
}

// ObjectID derives a stable id for a key. S3 has no object ids of its own.
func ObjectID(bucket, key string) string {
	return uuid.NewSHA1(objectNamespace, []byte(bucket+"/"+key)).String()
}

func (fs *FileSystem) translate(err error, bucket, key string) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	var e *errors.Error
	switch resp.Code {
	case codeNoSuchBucket:
		e = errors.New(storage.ErrBucketNotFound, "Bucket not found", err)
	case codeNoSuchKey, codeNotFoundStatusText:
		e = errors.New(storage.ErrObjectNotFound, "Object not found", err)
	case codeBucketExists, codeBucketOwnedByYou:
		e = errors.New(storage.ErrBucketExists, "The resource already exists", err)
	case codeBucketNotEmpty:
		e = errors.New(storage.ErrBucketNotEmpty, "The bucket you tried to delete is not empty", err)
	default:
		e = errors.New(storage.ErrBackendFailed, "object storage request failed", err)
	}

	e.AddContext("bucket", bucket)
	if key != "" {
		e.AddContext("path", key)
	}
	return e
}
