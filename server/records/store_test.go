package records

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreMigrations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	status, err := store.Migrations().Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, "prompt_catalog", status[0].Name)
	assert.Equal(t, "applied", status[1].Status)

	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.Migrations().MigrateToLatest(ctx))
		version, err := store.Migrations().CurrentVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, version)
	})
}

func TestStoreCRUD(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	t.Run("CreateAssignsID", func(t *testing.T) {
		rec, err := store.Create(ctx, "categories", Record{"name": "Marketing", "slug": "marketing"})
		require.NoError(t, err)
		assert.Len(t, rec.ID(), 26)
		assert.Equal(t, "Marketing", rec["name"])
		assert.NotNil(t, rec["created_at"])
	})

	t.Run("CreateKeepsExplicitID", func(t *testing.T) {
		rec, err := store.Create(ctx, "tags", Record{"id": "tag-seo", "name": "seo"})
		require.NoError(t, err)
		assert.Equal(t, "tag-seo", rec.ID())
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "tags", "nope")
		assert.True(t, errors.HasCode(err, ErrNotFound))
	})

	t.Run("Update", func(t *testing.T) {
		rec, err := store.Update(ctx, "tags", "tag-seo", Record{"slug": "search"})
		require.NoError(t, err)
		assert.Equal(t, "search", rec["slug"])

		_, err = store.Update(ctx, "tags", "missing", Record{"slug": "x"})
		assert.True(t, errors.HasCode(err, ErrNotFound))
	})

	t.Run("BooleansRoundTrip", func(t *testing.T) {
		rec, err := store.Create(ctx, "prompts", Record{
			"title":       "Outline",
			"content":     "Write an outline",
			"is_featured": true,
		})
		require.NoError(t, err)
		assert.Equal(t, true, rec["is_featured"])
		assert.Equal(t, false, rec["is_premium"])
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		_, err := store.Create(ctx, "tags", Record{"name": "x", "colour": "red"})
		assert.True(t, errors.HasCode(err, ErrUnknownColumn))
	})

	t.Run("UnknownResource", func(t *testing.T) {
		_, err := store.List(ctx, "users", Query{})
		assert.True(t, errors.HasCode(err, catalog.ErrUnknownResource))
	})
}

func TestStoreUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Upsert(ctx, "tags", Record{"id": "t1", "name": "alpha"})
	require.NoError(t, err)
	assert.Equal(t, "alpha", created["name"])

	updated, err := store.Upsert(ctx, "tags", Record{"id": "t1", "name": "beta"})
	require.NoError(t, err)
	assert.Equal(t, "beta", updated["name"])

	n, err := store.Count(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Upsert(ctx, "tags", Record{"name": "gamma"})
	assert.True(t, errors.HasCode(err, ErrIDRequired))

	_, err = store.Upsert(ctx, "prompt_tags", Record{"prompt_id": "p", "tag_id": "t"})
	assert.True(t, errors.HasCode(err, ErrIDRequired))
}

func TestStoreListQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "d", "b"} {
		_, err := store.Create(ctx, "tags", Record{"id": "id-" + name, "name": name})
		require.NoError(t, err)
	}

	t.Run("OrderAndRange", func(t *testing.T) {
		rows, err := store.List(ctx, "tags", Query{
			Order:  []Order{{Column: "name"}},
			Offset: 1,
			Limit:  2,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "b", rows[0]["name"])
		assert.Equal(t, "c", rows[1]["name"])
	})

	t.Run("OffsetWithoutLimit", func(t *testing.T) {
		rows, err := store.List(ctx, "tags", Query{Order: []Order{{Column: "name", Desc: true}}, Offset: 3})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "a", rows[0]["name"])
	})

	t.Run("InFilter", func(t *testing.T) {
		rows, err := store.List(ctx, "tags", Query{
			Columns: []string{"id"},
			Filters: []Filter{In("id", []string{"id-a", "id-d", "id-zzz"})},
			Order:   []Order{{Column: "id"}},
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, Record{"id": "id-a"}, rows[0])
	})

	t.Run("EmptyInFilterMatchesNothing", func(t *testing.T) {
		n, err := store.Count(ctx, "tags", In("id", nil))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("NeqFilter", func(t *testing.T) {
		n, err := store.Count(ctx, "tags", Filter{Column: "name", Op: OpNeq, Value: "a"})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("BadOrderColumn", func(t *testing.T) {
		_, err := store.List(ctx, "tags", Query{Order: []Order{{Column: "name; DROP TABLE tags"}}})
		assert.True(t, errors.HasCode(err, ErrUnknownColumn))
	})
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "tags", Record{"id": "t1", "name": "one"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "prompts", Record{"id": "p1", "title": "T", "content": "C"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "prompt_tags", Record{"prompt_id": "p1", "tag_id": "t1"})
	require.NoError(t, err)

	_, err = store.Delete(ctx, "tags")
	assert.True(t, errors.HasCode(err, ErrFilterRequired))

	n, err := store.Delete(ctx, "tags", Eq("id", "t1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// junction rows cascade with the tag
	links, err := store.Count(ctx, "prompt_tags", Eq("prompt_id", "p1"))
	require.NoError(t, err)
	assert.Equal(t, 0, links)
}

func TestStoreRaw(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "tags", Record{"id": "t1", "name": "one"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "prompts", Record{"id": "p1", "title": "T", "content": "C"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "prompt_tags", Record{"prompt_id": "p1", "tag_id": "t1"})
	require.NoError(t, err)

	rows, err := store.Raw(ctx, `SELECT p.title, t.name FROM prompts p
		JOIN prompt_tags pt ON pt.prompt_id = p.id
		JOIN tags t ON t.id = pt.tag_id WHERE p.id = ?`, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T", rows[0]["title"])
	assert.Equal(t, "one", rows[0]["name"])

	_, err = store.Raw(ctx, "DELETE FROM tags")
	assert.True(t, errors.HasCode(err, ErrReadOnlyQuery))
}
