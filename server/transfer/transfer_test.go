package transfer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *records.Store {
	t.Helper()
	store, err := records.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func resource(t *testing.T, name string) *catalog.Resource {
	t.Helper()
	res, err := catalog.Lookup(name)
	require.NoError(t, err)
	return res
}

func seed(t *testing.T, store *records.Store, name string, recs ...records.Record) {
	t.Helper()
	for _, rec := range recs {
		_, err := store.Create(context.Background(), name, rec)
		require.NoError(t, err)
	}
}

func importRows(t *testing.T, store *records.Store, name string, rows ...sheet.Row) *Result {
	t.Helper()
	req, err := RequestFor(resource(t, name), rows)
	require.NoError(t, err)
	result, err := NewImporter(store, 0, zerolog.Nop()).Import(context.Background(), req)
	require.NoError(t, err)
	return result
}

func junctionTargets(t *testing.T, store *records.Store, junction, source, target, id string) []string {
	t.Helper()
	rows, err := store.List(context.Background(), junction, records.Query{
		Filters: []records.Filter{records.Eq(source, id)},
		Order:   []records.Order{{Column: target}},
	})
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[target].(string)
	}
	return out
}
