package transfer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRecords(t *testing.T) {
	exporter := NewExporter(nil, 0, zerolog.Nop())
	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	file, err := exporter.ExportRecords(ExportRequest{
		Filename: "prompts",
		Format:   sheet.FormatCSV,
		Columns: []catalog.Column{
			{Field: "title", Header: "Title"},
			{Field: "is_featured", Header: "Featured"},
			{Field: "created_at", Header: "Created"},
			{Field: "description", Header: "Description"},
		},
		Records: []records.Record{
			{"title": "A", "is_featured": true, "created_at": when, "extra": "ignored"},
			{"title": "B", "is_featured": false},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "prompts.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t,
		"Title,Featured,Created,Description\nA,true,2025-03-01T12:00:00Z,\nB,false,,\n",
		string(file.Data))

	t.Run("FilenameRequired", func(t *testing.T) {
		_, err := exporter.ExportRecords(ExportRequest{Filename: " ", Format: sheet.FormatCSV})
		assert.True(t, errors.HasCode(err, ErrInvalidFilename))
	})

	t.Run("ExtensionNotDoubled", func(t *testing.T) {
		file, err := exporter.ExportRecords(ExportRequest{Filename: "out.XLSX", Format: sheet.FormatXLSX})
		require.NoError(t, err)
		assert.Equal(t, "out.XLSX", file.Name)
	})

	t.Run("InferredColumns", func(t *testing.T) {
		file, err := exporter.ExportRecords(ExportRequest{
			Filename: "raw",
			Format:   sheet.FormatCSV,
			Records:  []records.Record{{"b": 2, "a": []string{"x", "y"}}},
		})
		require.NoError(t, err)
		assert.Equal(t, "a,b\n\"x,y\",2\n", string(file.Data))
	})
}

func TestExportResource(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seed(t, store, "tags",
		records.Record{"id": "t1", "name": "one"},
		records.Record{"id": "t2", "name": "two"},
	)
	for _, id := range []string{"p1", "p2", "p3"} {
		seed(t, store, "prompts", records.Record{"id": id, "title": "T " + id, "content": "C"})
	}
	seed(t, store, "prompt_tags",
		records.Record{"prompt_id": "p1", "tag_id": "t2"},
		records.Record{"prompt_id": "p1", "tag_id": "t1"},
	)

	req, err := ExportRequestFor(resource(t, "prompts"), sheet.FormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.Filename, "prompts-export-"))

	type tick struct{ fetched, total int }
	var ticks []tick
	req.Progress = func(fetched, total int) { ticks = append(ticks, tick{fetched, total}) }

	file, err := NewExporter(store, 2, zerolog.Nop()).ExportResource(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []tick{{2, 3}, {3, 3}}, ticks)

	table, err := sheet.Parse(bytes.NewReader(file.Data), sheet.FormatCSV)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	// same-second timestamps fall back to id descending
	assert.Equal(t, "p3", table.Rows[0]["ID"])
	assert.Equal(t, "p1", table.Rows[2]["ID"])
	assert.Equal(t, "t1,t2", table.Rows[2]["Tags"])
	assert.Equal(t, "", table.Rows[0]["Tags"])
	assert.Equal(t, "false", table.Rows[0]["Featured"])

	t.Run("UnknownResourceFails", func(t *testing.T) {
		_, err := NewExporter(store, 2, zerolog.Nop()).ExportResource(ctx, ResourceExportRequest{
			Resource: "nope",
			Filename: "x",
			Format:   sheet.FormatCSV,
		})
		assert.True(t, errors.HasCode(err, ErrExportFailed))
	})
}

func TestTemplate(t *testing.T) {
	exporter := NewExporter(nil, 0, zerolog.Nop())

	file, err := exporter.Template(resource(t, "tags"), sheet.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "tags-template.csv", file.Name)
	assert.Equal(t, "ID,Name,Slug\n,seo,seo\n", string(file.Data))

	_, err = exporter.Template(resource(t, "storage_buckets"), sheet.FormatCSV)
	assert.True(t, errors.HasCode(err, ErrNotTransferable))
}

func TestExportFailedRows(t *testing.T) {
	exporter := NewExporter(nil, 0, zerolog.Nop())
	result := &Result{
		RunID:     "run",
		Resource:  "prompts",
		StartedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Rows: []RowResult{
			{Index: 0, Status: RowSuccess, Data: sheet.Row{"Title": "ok"}},
			{Index: 1, Status: RowFailed, Error: "Missing required field: content", Data: sheet.Row{"Title": "bad"}},
		},
	}

	file, err := exporter.ExportFailedRows(result, []string{"Title", "Content"}, sheet.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "prompts-failed-2025-01-02.csv", file.Name)
	assert.Equal(t, "Title,Content,Error\nbad,,Missing required field: content\n", string(file.Data))

	_, err = exporter.ExportFailedRows(&Result{}, nil, sheet.FormatCSV)
	assert.True(t, errors.HasCode(err, ErrNoRows))
}

func TestCell(t *testing.T) {
	assert.Equal(t, "", Cell(nil))
	assert.Equal(t, "true", Cell(true))
	assert.Equal(t, "42", Cell(int64(42)))
	assert.Equal(t, "1.5", Cell(1.5))
	assert.Equal(t, "a,b", Cell([]interface{}{"a", "b"}))
}
