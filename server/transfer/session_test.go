package transfer

import (
	"context"
	"strings"
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	session := NewSession(NewImporter(store, 0, zerolog.Nop()), resource(t, "prompts"))

	assert.Equal(t, StateIdle, session.State())
	assert.False(t, session.CanImport())

	_, err := session.Import(ctx, nil)
	assert.True(t, errors.HasCode(err, ErrInvalidState))

	csv := "Title,Content,Tags\nOne,first,ghost\nTwo,\n"
	require.NoError(t, session.Load("prompts.csv", strings.NewReader(csv)))
	assert.Equal(t, StatePreviewing, session.State())
	assert.Equal(t, "prompts.csv", session.FileName())
	assert.Len(t, session.Table().Rows, 2)
	assert.True(t, session.CanImport())

	warnings, err := session.Validate(ctx)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, StatePreviewing, session.State())
	assert.True(t, session.CanImport(), "warnings never block an import")

	result, err := session.Import(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, session.State())
	assert.Equal(t, OutcomeFailed, result.Outcome())
	assert.Equal(t, float64(100), session.Progress())
	assert.Same(t, result, session.Result())
	assert.False(t, session.CanImport())

	require.NoError(t, session.Reset())
	assert.Equal(t, StateIdle, session.State())
	assert.Nil(t, session.Table())
	assert.Nil(t, session.Result())
}

func TestSessionParseFailureReturnsToIdle(t *testing.T) {
	store := openStore(t)
	session := NewSession(NewImporter(store, 0, zerolog.Nop()), resource(t, "tags"))

	require.NoError(t, session.LoadTable("sheet", &sheet.Table{Headers: []string{"Name"}, Rows: []sheet.Row{{"Name": "a"}}}))
	assert.True(t, session.CanImport())

	err := session.Load("tags.txt", strings.NewReader("Name\na\n"))
	assert.True(t, errors.HasCode(err, sheet.ErrUnsupportedFormat))
	assert.Equal(t, StateIdle, session.State())
	assert.Nil(t, session.Table())

	err = session.Load("tags.csv", strings.NewReader(""))
	assert.True(t, errors.HasCode(err, sheet.ErrMissingHeader))
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionWithoutRowsCannotImport(t *testing.T) {
	store := openStore(t)
	session := NewSession(NewImporter(store, 0, zerolog.Nop()), resource(t, "tags"))

	require.NoError(t, session.Load("tags.csv", strings.NewReader("Name,Slug\n,\n")))
	assert.Equal(t, StatePreviewing, session.State())
	assert.False(t, session.CanImport())

	warnings, err := session.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
