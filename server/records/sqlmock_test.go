package records

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestDriverFailuresAreNotConstraintErrors(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := &Store{
		db:     bun.NewDB(sqldb, sqlitedialect.New()),
		logger: zerolog.Nop(),
		tables: map[string]*tableInfo{
			"tags": {columns: map[string]column{
				"id":   {Name: "id", Type: "TEXT", PK: 1},
				"name": {Name: "name", Type: "VARCHAR", NotNull: true},
			}},
		},
	}
	defer store.Close()

	mock.ExpectQuery(`SELECT \* FROM "tags"`).WillReturnError(stderrors.New("disk I/O error"))
	_, err = store.List(context.Background(), "tags", Query{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrQueryFailed))

	mock.ExpectExec(`INSERT INTO "tags"`).WillReturnError(stderrors.New("database is locked"))
	_, err = store.Create(context.Background(), "tags", Record{"name": "x"})
	_, isConstraint := AsConstraintError(err)
	assert.False(t, isConstraint)
	assert.True(t, errors.HasCode(err, ErrQueryFailed))

	assert.NoError(t, mock.ExpectationsWereMet())
}
