package storage

import (
	"context"
	"io"
	"time"
)

// Object is what a backend reports for a key or a common prefix. Prefixes
// carry an empty ID; Service turns them into folder entries and nothing
// above this package sees the convention.
type Object struct {
	ID           string
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// IsPrefix reports whether o stands for a common prefix rather than a key
func (o Object) IsPrefix() bool {
	return o.ID == ""
}

// Backend is a flat key/value object store with S3 listing semantics
type Backend interface {
	MakeBucket(ctx context.Context, bucket string) error
	RemoveBucket(ctx context.Context, bucket string) error
	// ListObjects lists keys directly under prefix and one entry per common
	// prefix one level down; it never recurses
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (Object, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, Object, error)
	StatObject(ctx context.Context, bucket, key string) (Object, error)
	// RemoveObjects deletes keys and returns those actually removed
	RemoveObjects(ctx context.Context, bucket string, keys []string) ([]string, error)
}
