package storage

import (
	"context"
	"io"
	"time"
)

// Bucket mirrors the bucket metadata of the object store. A bucket's id is
// its name.
type Bucket struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Owner            string    `json:"owner,omitempty"`
	Public           bool      `json:"public"`
	FileSizeLimit    *int64    `json:"file_size_limit,omitempty"`
	AllowedMimeTypes []string  `json:"allowed_mime_types,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BucketOptions are the settings accepted on creation
type BucketOptions struct {
	Public           bool     `json:"public"`
	Owner            string   `json:"owner,omitempty"`
	FileSizeLimit    *int64   `json:"file_size_limit,omitempty"`
	AllowedMimeTypes []string `json:"allowed_mime_types,omitempty"`
}

// BucketUpdate changes only the fields that are non-nil
type BucketUpdate struct {
	Public           *bool     `json:"public,omitempty"`
	FileSizeLimit    *int64    `json:"file_size_limit,omitempty"`
	AllowedMimeTypes *[]string `json:"allowed_mime_types,omitempty"`
}

// FileInfo describes a stored object
type FileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntryKind tags a listing entry
type EntryKind string

const (
	KindFile   EntryKind = "file"
	KindFolder EntryKind = "folder"
)

// Entry is one item of a folder listing: either a file with metadata or a
// folder that exists only because some object key continues below it
type Entry struct {
	Kind EntryKind `json:"kind"`
	Name string    `json:"name"`
	File *FileInfo `json:"file,omitempty"`
}

// IsFolder reports whether the entry is a folder
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// FolderEntry builds a folder entry
func FolderEntry(name string) Entry {
	return Entry{Kind: KindFolder, Name: name}
}

// FileEntry builds a file entry
func FileEntry(info FileInfo) Entry {
	return Entry{Kind: KindFile, Name: info.Name, File: &info}
}

// SortBy orders a listing
type SortBy struct {
	Column string `json:"column"` // name, updated_at or size
	Order  string `json:"order"`  // asc or desc
}

// ListOptions bounds a listing
type ListOptions struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	SortBy SortBy `json:"sort_by,omitempty"`
}

// UploadOptions control conflict handling and the stored content type
type UploadOptions struct {
	Upsert      bool   `json:"upsert"`
	ContentType string `json:"content_type,omitempty"`
}

// Gateway is the object storage contract used by the media library
type Gateway interface {
	ListBuckets(ctx context.Context) ([]Bucket, error)
	GetBucket(ctx context.Context, id string) (Bucket, error)
	CreateBucket(ctx context.Context, name string, opts BucketOptions) (Bucket, error)
	UpdateBucket(ctx context.Context, id string, upd BucketUpdate) (Bucket, error)
	DeleteBucket(ctx context.Context, id string) error

	List(ctx context.Context, bucket, prefix string, opts ListOptions) ([]Entry, error)
	Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, opts UploadOptions) (FileInfo, error)
	Download(ctx context.Context, bucket, path string) (io.ReadCloser, FileInfo, error)
	Remove(ctx context.Context, bucket string, paths []string) ([]string, error)
	PublicURL(bucket, path string) string
}
