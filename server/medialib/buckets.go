package medialib

import (
	"context"
	"path"
	"strconv"
	"sync"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Library manages buckets on top of a storage gateway
type Library struct {
	gateway     storage.Gateway
	concurrency int
	listLimit   int
	logger      zerolog.Logger
}

// NewLibrary creates a bucket manager. cfg bounds purge concurrency and the
// page size of listings.
func NewLibrary(gateway storage.Gateway, cfg *config.MediaConfig, logger zerolog.Logger) *Library {
	l := &Library{
		gateway:     gateway,
		concurrency: config.DEFAULT_DELETE_CONCURRENCY,
		listLimit:   config.DEFAULT_LIST_LIMIT,
		logger:      logger.With().Str("component", "medialib").Logger(),
	}
	if cfg != nil && cfg.DeleteConcurrency > 0 {
		l.concurrency = cfg.DeleteConcurrency
	}
	if cfg != nil && cfg.ListLimit > 0 {
		l.listLimit = cfg.ListLimit
	}
	return l
}

func (l *Library) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	return l.gateway.ListBuckets(ctx)
}

func (l *Library) CreateBucket(ctx context.Context, name string, public bool) (storage.Bucket, error) {
	return l.gateway.CreateBucket(ctx, name, storage.BucketOptions{Public: public})
}

// SetVisibility flips a bucket between public and private
func (l *Library) SetVisibility(ctx context.Context, id string, public bool) (storage.Bucket, error) {
	return l.gateway.UpdateBucket(ctx, id, storage.BucketUpdate{Public: &public})
}

// CanDelete reports whether typed confirms deleting the bucket: it must
// equal the bucket name exactly
func CanDelete(bucketName, typed string) bool {
	return bucketName != "" && typed == bucketName
}

// PurgeReport counts what a purge removed
type PurgeReport struct {
	Bucket   string `json:"bucket"`
	Levels   int    `json:"levels"`
	Prefixes int    `json:"prefixes"`
	Removed  int    `json:"removed"`
}

// DeleteBucket empties the bucket and then deletes it. When the final
// delete fails the purge has already happened; the report is returned with
// the error and the empty bucket stays in place.
func (l *Library) DeleteBucket(ctx context.Context, id, confirmation string) (*PurgeReport, error) {
	bucket, err := l.gateway.GetBucket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanDelete(bucket.Name, confirmation) {
		return nil, errors.New(ErrConfirmationMismatch, "type the bucket name to confirm deletion", nil).
			AddContext("bucket", bucket.Name)
	}

	report, err := l.Purge(ctx, bucket.ID)
	if err != nil {
		return report, err
	}

	if err := l.gateway.DeleteBucket(ctx, bucket.ID); err != nil {
		l.logger.Warn().Err(err).
			Str("bucket", bucket.ID).
			Int("removed", report.Removed).
			Msg("Bucket emptied but could not be deleted")
		return report, errors.New(ErrBucketRemovalFailed, "bucket was emptied but could not be deleted", err).
			AddContext("bucket", bucket.ID).
			AddContext("removed", strconv.Itoa(report.Removed))
	}

	l.logger.Info().Str("bucket", bucket.ID).Int("removed", report.Removed).Msg("Bucket deleted")
	return report, nil
}

// Purge removes every object in the bucket. Prefixes are walked breadth
// first, one level at a time; within a level up to concurrency prefixes are
// listed and bulk-removed in parallel.
func (l *Library) Purge(ctx context.Context, bucket string) (*PurgeReport, error) {
	report := &PurgeReport{Bucket: bucket}
	level := []string{""}

	for len(level) > 0 {
		if err := ctx.Err(); err != nil {
			return report, errors.New(errors.CommonCanceled, "purge canceled", err).AddContext("bucket", bucket)
		}
		report.Levels++

		var (
			mu   sync.Mutex
			next []string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.concurrency)

		for _, prefix := range level {
			prefix := prefix
			g.Go(func() error {
				folders, removed, err := l.purgePrefix(gctx, bucket, prefix)
				if err != nil {
					return err
				}
				mu.Lock()
				next = append(next, folders...)
				report.Prefixes++
				report.Removed += removed
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return report, errors.New(ErrPurgeFailed, "failed to empty bucket", err).
				AddContext("bucket", bucket).
				AddContext("removed", strconv.Itoa(report.Removed))
		}
		level = next
	}

	l.logger.Debug().Str("bucket", bucket).Int("levels", report.Levels).Int("removed", report.Removed).Msg("Bucket purged")
	return report, nil
}

// purgePrefix lists one prefix and removes its files in a single call,
// returning the sub-folders still to visit
func (l *Library) purgePrefix(ctx context.Context, bucket, prefix string) ([]string, int, error) {
	var (
		folders []string
		files   []string
	)
	entries, err := listAll(ctx, l.gateway, bucket, prefix, l.listLimit)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range entries {
		if e.IsFolder() {
			folders = append(folders, path.Join(prefix, e.Name))
		} else {
			files = append(files, e.File.Path)
		}
	}

	if len(files) == 0 {
		return folders, 0, nil
	}
	removed, err := l.gateway.Remove(ctx, bucket, files)
	if err != nil {
		return nil, len(removed), err
	}
	return folders, len(removed), nil
}

// listAll pages through every entry directly under prefix, limit entries
// per call
func listAll(ctx context.Context, gateway storage.Gateway, bucket, prefix string, limit int) ([]storage.Entry, error) {
	var all []storage.Entry
	for offset := 0; ; {
		entries, err := gateway.List(ctx, bucket, prefix, storage.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
		if limit <= 0 || len(entries) < limit {
			return all, nil
		}
		offset += len(entries)
	}
}
