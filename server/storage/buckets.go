package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
)

// BucketStore persists bucket metadata in the catalog database
type BucketStore struct {
	db *bun.DB
}

// NewBucketStore creates a bucket store on db; the storage_buckets table is
// created by the records migrations
func NewBucketStore(db *bun.DB) *BucketStore {
	return &BucketStore{db: db}
}

func (s *BucketStore) List(ctx context.Context) ([]Bucket, error) {
	var rows []catalog.StorageBucket
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, errors.New(ErrMetadataFailed, "failed to list buckets", err)
	}

	buckets := make([]Bucket, len(rows))
	for i := range rows {
		buckets[i] = fromRow(&rows[i])
	}
	return buckets, nil
}

func (s *BucketStore) Get(ctx context.Context, id string) (Bucket, error) {
	row := new(catalog.StorageBucket)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err == sql.ErrNoRows {
		return Bucket{}, errors.New(ErrBucketNotFound, "bucket not found", nil).AddContext("bucket", id)
	}
	if err != nil {
		return Bucket{}, errors.New(ErrMetadataFailed, "failed to load bucket", err).AddContext("bucket", id)
	}
	return fromRow(row), nil
}

func (s *BucketStore) Insert(ctx context.Context, b Bucket) (Bucket, error) {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	row := toRow(b)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return Bucket{}, errors.New(ErrBucketExists, "The resource already exists", err).AddContext("bucket", b.Name)
		}
		return Bucket{}, errors.New(ErrMetadataFailed, "failed to save bucket", err).AddContext("bucket", b.Name)
	}
	return b, nil
}

func (s *BucketStore) Update(ctx context.Context, id string, upd BucketUpdate) (Bucket, error) {
	q := s.db.NewUpdate().
		Model((*catalog.StorageBucket)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)

	if upd.Public != nil {
		q = q.Set("public = ?", *upd.Public)
	}
	if upd.FileSizeLimit != nil {
		if *upd.FileSizeLimit <= 0 {
			q = q.Set("file_size_limit = NULL")
		} else {
			q = q.Set("file_size_limit = ?", *upd.FileSizeLimit)
		}
	}
	if upd.AllowedMimeTypes != nil {
		encoded, err := json.Marshal(*upd.AllowedMimeTypes)
		if err != nil {
			return Bucket{}, errors.New(ErrMetadataFailed, "failed to encode mime types", err)
		}
		q = q.Set("allowed_mime_types = ?", string(encoded))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return Bucket{}, errors.New(ErrMetadataFailed, "failed to update bucket", err).AddContext("bucket", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Bucket{}, errors.New(ErrBucketNotFound, "bucket not found", nil).AddContext("bucket", id)
	}
	return s.Get(ctx, id)
}

func (s *BucketStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().
		Model((*catalog.StorageBucket)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return errors.New(ErrMetadataFailed, "failed to delete bucket metadata", err).AddContext("bucket", id)
	}
	return nil
}

func fromRow(r *catalog.StorageBucket) Bucket {
	return Bucket{
		ID:               r.ID,
		Name:             r.Name,
		Owner:            r.Owner,
		Public:           r.Public,
		FileSizeLimit:    r.FileSizeLimit,
		AllowedMimeTypes: r.AllowedMimeTypes,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toRow(b Bucket) *catalog.StorageBucket {
	return &catalog.StorageBucket{
		TimeAuditable: catalog.TimeAuditable{
			CreatedAt: b.CreatedAt,
			UpdatedAt: b.UpdatedAt,
		},
		ID:               b.ID,
		Name:             b.Name,
		Owner:            b.Owner,
		Public:           b.Public,
		FileSizeLimit:    b.FileSizeLimit,
		AllowedMimeTypes: b.AllowedMimeTypes,
	}
}
