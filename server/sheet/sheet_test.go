package sheet

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"prompts.xlsx", FormatXLSX, false},
		{"PROMPTS.CSV", FormatCSV, false},
		{"legacy.xls", "", true},
		{"notes.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffID, Title ,Tags,\n1,Hello,\"a,b\",ignored\n,,,\n2,World\n"

	table, err := Parse(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Title", "Tags"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, Row{"ID": "1", "Title": "Hello", "Tags": "a,b"}, table.Rows[0])
	assert.Equal(t, Row{"ID": "2", "Title": "World", "Tags": ""}, table.Rows[1])
	assert.Equal(t, []string{"2", "World", ""}, table.Values(table.Rows[1]))
}

func TestParseRequiresHeader(t *testing.T) {
	_, err := Parse(strings.NewReader(""), FormatCSV)
	assert.True(t, errors.HasCode(err, ErrMissingHeader))

	_, err = Parse(strings.NewReader("a,b"), Format("ods"))
	assert.True(t, errors.HasCode(err, ErrUnsupportedFormat))
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"ID", "Title", "Featured"}
	rows := [][]string{
		{"01J9Z", "First", "true"},
		{"", "Second", "false"},
	}
	require.NoError(t, Write(&buf, FormatXLSX, headers, rows))

	table, err := Parse(&buf, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, headers, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "First", table.Rows[0]["Title"])
	assert.Equal(t, "", table.Rows[1]["ID"])
	assert.Equal(t, "false", table.Rows[1]["Featured"])
}

func TestTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Template(&buf, FormatCSV, []string{"ID", "Name", "Slug"}, []string{"", "Marketing"}))
	assert.Equal(t, "ID,Name,Slug\n,Marketing,\n", buf.String())
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestSpreadsheetID(t *testing.T) {
	id, err := SpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-dEf_123", id)

	id, err = SpreadsheetID("1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms")
	require.NoError(t, err)
	assert.Equal(t, "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", id)

	_, err = SpreadsheetID("https://example.com/nope")
	assert.True(t, errors.HasCode(err, ErrInvalidSheetURL))
}

func TestNewGoogleSourceRequiresCredentials(t *testing.T) {
	_, err := NewGoogleSource(context.Background(), &config.SheetsConfig{})
	assert.True(t, errors.HasCode(err, ErrCredentialsRequired))
}

func TestGoogleSourceFetch(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"range": "Sheet1!A1:Z3",
			"majorDimension": "ROWS",
			"values": [["ID", "Name"], ["1", "seo"], [], ["2", "ads"]]
		}`))
	}))
	defer ts.Close()

	src, err := NewGoogleSourceWithOptions(context.Background(), "",
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	table, err := src.Fetch(context.Background(), "sheet-123", "")
	require.NoError(t, err)
	assert.Contains(t, gotPath, "sheet-123")
	assert.Equal(t, []string{"ID", "Name"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "ads", table.Rows[1]["Name"])
}
