package sdk

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gear6io/promptvalley/server/storage"

	api "github.com/gear6io/promptvalley/server/protocols/http"
)

// Storage implements storage.Gateway over the buckets API
type Storage struct {
	c *Client
}

var _ storage.Gateway = (*Storage)(nil)

func bucketPath(id string, parts ...string) string {
	p := "/api/v1/buckets/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func objectPath(bucket, p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucketPath(bucket, "objects", strings.Join(segments, "/"))
}

func (s *Storage) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	var out []storage.Bucket
	err := s.c.getJSON(ctx, "/api/v1/buckets", nil, &out)
	return out, err
}

func (s *Storage) GetBucket(ctx context.Context, id string) (storage.Bucket, error) {
	var out storage.Bucket
	err := s.c.getJSON(ctx, bucketPath(id), nil, &out)
	return out, err
}

func (s *Storage) CreateBucket(ctx context.Context, name string, opts storage.BucketOptions) (storage.Bucket, error) {
	payload := struct {
		Name string `json:"name"`
		storage.BucketOptions
	}{Name: name, BucketOptions: opts}

	var out storage.Bucket
	err := s.c.sendJSON(ctx, http.MethodPost, "/api/v1/buckets", payload, &out)
	return out, err
}

func (s *Storage) UpdateBucket(ctx context.Context, id string, upd storage.BucketUpdate) (storage.Bucket, error) {
	var out storage.Bucket
	err := s.c.sendJSON(ctx, http.MethodPatch, bucketPath(id), upd, &out)
	return out, err
}

func (s *Storage) DeleteBucket(ctx context.Context, id string) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: bucketPath(id)}, nil)
}

func (s *Storage) List(ctx context.Context, bucket, prefix string, opts storage.ListOptions) ([]storage.Entry, error) {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.SortBy.Column != "" {
		q.Set("sort", opts.SortBy.Column)
	}
	if opts.SortBy.Order != "" {
		q.Set("order", opts.SortBy.Order)
	}

	var out []storage.Entry
	err := s.c.getJSON(ctx, bucketPath(bucket, "list"), q, &out)
	return out, err
}

func (s *Storage) Upload(ctx context.Context, bucket, p string, body io.Reader, size int64, opts storage.UploadOptions) (storage.FileInfo, error) {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = storage.DetectContentType(p)
	}

	var out storage.FileInfo
	err := s.c.do(ctx, request{
		method:      http.MethodPut,
		path:        objectPath(bucket, p),
		body:        body,
		size:        size,
		contentType: contentType,
		headers:     map[string]string{api.UpsertHeader: strconv.FormatBool(opts.Upsert)},
	}, &out)
	return out, err
}

// Download streams an object; the caller closes the reader
func (s *Storage) Download(ctx context.Context, bucket, p string) (io.ReadCloser, storage.FileInfo, error) {
	resp, err := s.c.send(ctx, request{method: http.MethodGet, path: objectPath(bucket, p)})
	if err != nil {
		return nil, storage.FileInfo{}, err
	}

	key := strings.Trim(p, "/")
	info := storage.FileInfo{
		Name:        path.Base(key),
		Path:        key,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
	}
	return resp.Body, info, nil
}

func (s *Storage) Remove(ctx context.Context, bucket string, paths []string) ([]string, error) {
	var out struct {
		Removed []string `json:"removed"`
	}
	payload := map[string]interface{}{"paths": paths}
	err := s.c.sendJSON(ctx, http.MethodPost, bucketPath(bucket, "remove"), payload, &out)
	return out.Removed, err
}

// PublicURL points at the server's public object route
func (s *Storage) PublicURL(bucket, p string) string {
	return storage.PublicURL(s.c.opt.Addr, bucket, p)
}
