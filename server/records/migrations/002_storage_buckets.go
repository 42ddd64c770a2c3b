package migrations

import (
	"context"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/uptrace/bun"
)

// Migration002 adds bucket metadata for the media library
type Migration002 struct{}

func (m *Migration002) Version() int {
	return 2
}

func (m *Migration002) Name() string {
	return "storage_buckets"
}

func (m *Migration002) Description() string {
	return "Bucket metadata: visibility, owner, size limit and allowed MIME types"
}

// Up runs the migration
func (m *Migration002) Up(ctx context.Context, tx bun.Tx) error {
	if _, err := tx.NewCreateTable().
		Model((*catalog.StorageBucket)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(MigrationTableCreationFailed, "failed to create storage_buckets table", err)
	}
	return nil
}
