package storage

import (
	"context"
	"io"
	"mime"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/rs/zerolog"
)

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,62}$`)

// ValidateBucketName enforces S3-compatible bucket names
func ValidateBucketName(name string) error {
	if !bucketNameRegex.MatchString(name) || strings.Contains(name, "..") {
		return errors.New(ErrInvalidBucketName, "bucket names are 2-63 lowercase letters, digits, dots, dashes or underscores", nil).
			AddContext("bucket", name)
	}
	return nil
}

// CleanPath validates an object path: relative, no empty or dot segments
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", errors.New(ErrInvalidPath, "object path is empty", nil)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.New(ErrInvalidPath, "invalid object path", nil).AddContext("path", p)
		}
	}
	return p, nil
}

// Service implements Gateway by pairing an object Backend with bucket
// metadata kept in the catalog database
type Service struct {
	backend   Backend
	buckets   *BucketStore
	publicURL string
	logger    zerolog.Logger
}

var _ Gateway = (*Service)(nil)

// NewService creates a storage service. publicURL is the externally
// reachable base that serves /object/public/<bucket>/<path>.
func NewService(backend Backend, buckets *BucketStore, publicURL string, logger zerolog.Logger) *Service {
	return &Service{
		backend:   backend,
		buckets:   buckets,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("component", "storage").Logger(),
	}
}

func (s *Service) ListBuckets(ctx context.Context) ([]Bucket, error) {
	return s.buckets.List(ctx)
}

func (s *Service) GetBucket(ctx context.Context, id string) (Bucket, error) {
	return s.buckets.Get(ctx, id)
}

// CreateBucket records metadata first and removes it again when the backend
// refuses the bucket
func (s *Service) CreateBucket(ctx context.Context, name string, opts BucketOptions) (Bucket, error) {
	if err := ValidateBucketName(name); err != nil {
		return Bucket{}, err
	}

	bucket, err := s.buckets.Insert(ctx, Bucket{
		ID:               name,
		Name:             name,
		Owner:            opts.Owner,
		Public:           opts.Public,
		FileSizeLimit:    opts.FileSizeLimit,
		AllowedMimeTypes: opts.AllowedMimeTypes,
	})
	if err != nil {
		return Bucket{}, err
	}

	if err := s.backend.MakeBucket(ctx, name); err != nil {
		if delErr := s.buckets.Delete(ctx, name); delErr != nil {
			s.logger.Error().Err(delErr).Str("bucket", name).Msg("Failed to roll back bucket metadata")
		}
		return Bucket{}, err
	}

	s.logger.Info().Str("bucket", name).Bool("public", opts.Public).Msg("Bucket created")
	return bucket, nil
}

func (s *Service) UpdateBucket(ctx context.Context, id string, upd BucketUpdate) (Bucket, error) {
	bucket, err := s.buckets.Update(ctx, id, upd)
	if err != nil {
		return Bucket{}, err
	}
	s.logger.Info().Str("bucket", id).Bool("public", bucket.Public).Msg("Bucket updated")
	return bucket, nil
}

// DeleteBucket deletes an empty bucket; the backend rejects non-empty ones
func (s *Service) DeleteBucket(ctx context.Context, id string) error {
	if _, err := s.buckets.Get(ctx, id); err != nil {
		return err
	}
	if err := s.backend.RemoveBucket(ctx, id); err != nil {
		return err
	}
	if err := s.buckets.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("bucket", id).Msg("Bucket deleted")
	return nil
}

// List returns the entries directly under prefix. Common prefixes become
// folder entries, every other object becomes a file entry.
func (s *Service) List(ctx context.Context, bucket, prefix string, opts ListOptions) ([]Entry, error) {
	if _, err := s.buckets.Get(ctx, bucket); err != nil {
		return nil, err
	}

	dir := strings.Trim(prefix, "/")
	if dir != "" {
		dir += "/"
	}

	objects, err := s.backend.ListObjects(ctx, bucket, dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, dir), "/")
		if name == "" {
			continue
		}
		if obj.IsPrefix() {
			entries = append(entries, FolderEntry(name))
			continue
		}
		entries = append(entries, FileEntry(fileInfo(obj, name)))
	}

	sortEntries(entries, opts.SortBy)

	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return []Entry{}, nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// Upload stores body at path, enforcing the bucket's size limit and MIME
// allow-list. Without Upsert an existing object is a conflict.
func (s *Service) Upload(ctx context.Context, bucket, p string, body io.Reader, size int64, opts UploadOptions) (FileInfo, error) {
	b, err := s.buckets.Get(ctx, bucket)
	if err != nil {
		return FileInfo{}, err
	}
	key, err := CleanPath(p)
	if err != nil {
		return FileInfo{}, err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = DetectContentType(key)
	}

	if b.FileSizeLimit != nil && size > *b.FileSizeLimit {
		return FileInfo{}, errors.Newf(ErrPayloadTooLarge, "object exceeds the bucket limit of %d bytes", *b.FileSizeLimit).
			AddContext("bucket", bucket).
			AddContext("path", key)
	}
	if !MimeAllowed(b.AllowedMimeTypes, contentType) {
		return FileInfo{}, errors.New(ErrMimeTypeNotAllowed, "mime type "+contentType+" is not supported", nil).
			AddContext("bucket", bucket).
			AddContext("path", key)
	}

	if !opts.Upsert {
		if _, err := s.backend.StatObject(ctx, bucket, key); err == nil {
			return FileInfo{}, errors.New(ErrObjectExists, "The resource already exists", nil).
				AddContext("bucket", bucket).
				AddContext("path", key)
		} else if !errors.HasCode(err, ErrObjectNotFound) {
			return FileInfo{}, err
		}
	}

	obj, err := s.backend.PutObject(ctx, bucket, key, body, size, contentType)
	if err != nil {
		return FileInfo{}, err
	}

	s.logger.Debug().Str("bucket", bucket).Str("path", key).Int64("size", obj.Size).Msg("Object uploaded")
	return fileInfo(obj, path.Base(key)), nil
}

func (s *Service) Download(ctx context.Context, bucket, p string) (io.ReadCloser, FileInfo, error) {
	if _, err := s.buckets.Get(ctx, bucket); err != nil {
		return nil, FileInfo{}, err
	}
	key, err := CleanPath(p)
	if err != nil {
		return nil, FileInfo{}, err
	}

	rc, obj, err := s.backend.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, FileInfo{}, err
	}
	return rc, fileInfo(obj, path.Base(key)), nil
}

// Remove deletes paths in one backend call and returns the removed ones
func (s *Service) Remove(ctx context.Context, bucket string, paths []string) ([]string, error) {
	if _, err := s.buckets.Get(ctx, bucket); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return []string{}, nil
	}

	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		key, err := CleanPath(p)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	removed, err := s.backend.RemoveObjects(ctx, bucket, keys)
	if err != nil {
		return removed, err
	}
	s.logger.Debug().Str("bucket", bucket).Int("removed", len(removed)).Msg("Objects removed")
	return removed, nil
}

// PublicURL returns the address serving path when the bucket is public
func (s *Service) PublicURL(bucket, p string) string {
	return PublicURL(s.publicURL, bucket, p)
}

// PublicURL joins base, bucket and an escaped object path
func PublicURL(base, bucket, p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(base, "/") + "/object/public/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// DetectContentType guesses a content type from the file extension
func DetectContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
		return ct
	}
	return "application/octet-stream"
}

// MimeAllowed matches contentType against an allow-list that may contain
// wildcards such as "image/*". An empty list allows everything.
func MimeAllowed(allowed []string, contentType string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, pattern := range allowed {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		ct := strings.ToLower(contentType)
		switch {
		case pattern == "*/*" || pattern == ct:
			return true
		case strings.HasSuffix(pattern, "/*") && strings.HasPrefix(ct, strings.TrimSuffix(pattern, "*")):
			return true
		}
	}
	return false
}

func fileInfo(obj Object, name string) FileInfo {
	return FileInfo{
		ID:          obj.ID,
		Name:        name,
		Path:        obj.Key,
		Size:        obj.Size,
		ContentType: obj.ContentType,
		ETag:        obj.ETag,
		UpdatedAt:   obj.LastModified,
	}
}

func sortEntries(entries []Entry, by SortBy) {
	desc := strings.EqualFold(by.Order, "desc")
	less := func(a, b Entry) bool { return a.Name < b.Name }

	switch by.Column {
	case "updated_at":
		less = func(a, b Entry) bool {
			return entryFile(a).UpdatedAt.Before(entryFile(b).UpdatedAt)
		}
	case "size":
		less = func(a, b Entry) bool {
			return entryFile(a).Size < entryFile(b).Size
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func entryFile(e Entry) FileInfo {
	if e.File == nil {
		return FileInfo{}
	}
	return *e.File
}
