package sheet

import (
	"path"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
)

// Format is a spreadsheet file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const utf8BOM = "\ufeff"

// Row maps a header to the cell below it. Cells are always strings; typing
// happens in the importer.
type Row map[string]string

// Table is a parsed sheet: the header row in file order and the data rows
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Values returns the cells of row in header order
func (t *Table) Values(row Row) []string {
	values := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		values[i] = row[h]
	}
	return values
}

// ParseFormat accepts "xlsx", "csv" and their dotted forms, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case "xls":
		return "", errors.New(ErrUnsupportedFormat, "legacy .xls workbooks are not supported, save as .xlsx or .csv", nil).
			AddContext("format", s)
	}
	return "", errors.New(ErrUnsupportedFormat, "unsupported file format", nil).AddContext("format", s)
}

// DetectFormat derives the format from a file name's extension
func DetectFormat(name string) (Format, error) {
	ext := path.Ext(name)
	if ext == "" {
		return "", errors.New(ErrUnsupportedFormat, "file has no extension", nil).AddContext("file", name)
	}
	return ParseFormat(ext)
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// fromRecords turns raw rows (header first) into a Table. Blank rows are
// dropped, short rows padded, and a leading BOM removed from the first header.
func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, errors.New(ErrMissingHeader, "file has no header row", nil)
	}

	raw := records[0]
	headers := make([]string, 0, len(raw))
	index := make([]int, 0, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		headers = append(headers, h)
		index = append(index, i)
	}

	table := &Table{Headers: headers, Rows: make([]Row, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			if col := index[j]; col < len(rec) {
				row[h] = rec[col]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
