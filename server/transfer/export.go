package transfer

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/rs/zerolog"
)

// errorHeader is the column appended when exporting failed rows
const errorHeader = "Error"

// File is a rendered spreadsheet ready to be downloaded or saved
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportRequest renders records that are already in memory
type ExportRequest struct {
	Filename string
	Format   sheet.Format
	// Columns selects and orders the output; nil exports every key found
	Columns []catalog.Column
	Records []records.Record
}

// ResourceExportRequest pages a whole resource out of the gateway
type ResourceExportRequest struct {
	Resource      string
	Columns       []catalog.Column
	Relationships []catalog.Relationship
	Format        sheet.Format
	Filename      string
	// Progress receives fetched and total row counts after every page
	Progress func(fetched, total int)
}

// ExportRequestFor builds a resource export from the registered mapping
func ExportRequestFor(res *catalog.Resource, format sheet.Format) (ResourceExportRequest, error) {
	if len(res.Columns) == 0 {
		return ResourceExportRequest{}, errors.New(ErrNotTransferable, "resource has no column mapping", nil).
			AddContext("resource", res.Name)
	}
	return ResourceExportRequest{
		Resource:      res.Name,
		Columns:       res.Columns,
		Relationships: res.Relationships,
		Format:        format,
		Filename:      res.Name + "-export-" + time.Now().UTC().Format("2006-01-02"),
	}, nil
}

// Exporter renders records into spreadsheet files
type Exporter struct {
	gateway  records.Gateway
	pageSize int
	logger   zerolog.Logger
}

// NewExporter creates an exporter reading pageSize rows per request
func NewExporter(gateway records.Gateway, pageSize int, logger zerolog.Logger) *Exporter {
	if pageSize <= 0 {
		pageSize = config.DEFAULT_EXPORT_PAGE_SIZE
	}
	return &Exporter{
		gateway:  gateway,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "exporter").Logger(),
	}
}

// ExportRecords writes a header row of the declared headers followed by one
// row per record with the declared fields in column order
func (e *Exporter) ExportRecords(req ExportRequest) (*File, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, errors.New(ErrInvalidFilename, "filename is required", nil)
	}

	columns := req.Columns
	if columns == nil {
		columns = inferColumns(req.Records)
	}

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
	}

	rows := make([][]string, len(req.Records))
	for i, rec := range req.Records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = Cell(rec[c.Field])
		}
		rows[i] = row
	}

	return render(req.Filename, req.Format, headers, rows)
}

// ExportResource counts the resource, then reads it page by page, newest
// first. Any page failure aborts the export and discards what was read.
func (e *Exporter) ExportResource(ctx context.Context, req ResourceExportRequest) (*File, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, errors.New(ErrInvalidFilename, "filename is required", nil)
	}

	total, err := e.gateway.Count(ctx, req.Resource)
	if err != nil {
		return nil, errors.New(ErrExportFailed, "failed to count records", err).AddContext("resource", req.Resource)
	}

	all := make([]records.Record, 0, total)
	for offset := 0; offset < total; offset += e.pageSize {
		page, err := e.gateway.List(ctx, req.Resource, records.Query{
			Order:  []records.Order{{Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
			Offset: offset,
			Limit:  e.pageSize,
		})
		if err != nil {
			return nil, errors.New(ErrExportFailed, "failed to fetch records", err).
				AddContext("resource", req.Resource).
				AddContext("offset", strconv.Itoa(offset))
		}
		if err := e.expandRelations(ctx, req, page); err != nil {
			return nil, err
		}

		all = append(all, page...)
		if req.Progress != nil {
			req.Progress(len(all), total)
		}
		if len(page) < e.pageSize {
			break
		}
	}

	e.logger.Info().Str("resource", req.Resource).Int("rows", len(all)).Str("format", string(req.Format)).Msg("Export finished")
	return e.ExportRecords(ExportRequest{
		Filename: req.Filename,
		Format:   req.Format,
		Columns:  req.Columns,
		Records:  all,
	})
}

// expandRelations fills many-to-many fields with the comma-joined ids found
// in the junction table, so the file can be imported back unchanged
func (e *Exporter) expandRelations(ctx context.Context, req ResourceExportRequest, page []records.Record) error {
	if len(page) == 0 {
		return nil
	}

	ids := make([]string, 0, len(page))
	for _, rec := range page {
		ids = append(ids, rec.ID())
	}

	for _, rel := range req.Relationships {
		if rel.Kind != catalog.ManyToMany {
			continue
		}
		source, target := rel.Keys(req.Resource)

		links, err := e.gateway.List(ctx, rel.Junction, records.Query{
			Filters: []records.Filter{records.In(source, ids)},
		})
		if err != nil {
			return errors.New(ErrExportFailed, "failed to fetch relationship", err).
				AddContext("resource", req.Resource).
				AddContext("field", rel.Field)
		}

		related := make(map[string][]string, len(page))
		for _, link := range links {
			owner := Cell(link[source])
			related[owner] = append(related[owner], Cell(link[target]))
		}
		for _, rec := range page {
			list := related[rec.ID()]
			sort.Strings(list)
			rec[rel.Field] = strings.Join(list, ",")
		}
	}
	return nil
}

// Template renders the headers of res plus one example row
func (e *Exporter) Template(res *catalog.Resource, format sheet.Format) (*File, error) {
	if len(res.Columns) == 0 {
		return nil, errors.New(ErrNotTransferable, "resource has no column mapping", nil).AddContext("resource", res.Name)
	}

	var buf bytes.Buffer
	if err := sheet.Template(&buf, format, res.Headers(), res.Examples()); err != nil {
		return nil, err
	}
	return &File{
		Name:        res.Name + "-template" + format.Extension(),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// ExportFailedRows writes only the failed rows with their original cells
// and an appended Error column
func (e *Exporter) ExportFailedRows(result *Result, headers []string, format sheet.Format) (*File, error) {
	failed := result.FailedRows()
	if len(failed) == 0 {
		return nil, errors.New(ErrNoRows, "import has no failed rows", nil).AddContext("run_id", result.RunID)
	}

	out := append(append([]string{}, headers...), errorHeader)
	rows := make([][]string, len(failed))
	for i, r := range failed {
		row := make([]string, 0, len(out))
		for _, h := range headers {
			row = append(row, r.Data[h])
		}
		rows[i] = append(row, r.Error)
	}

	name := fmt.Sprintf("%s-failed-%s", result.Resource, result.StartedAt.Format("2006-01-02"))
	return render(name, format, out, rows)
}

func render(filename string, format sheet.Format, headers []string, rows [][]string) (*File, error) {
	var buf bytes.Buffer
	if err := sheet.Write(&buf, format, headers, rows); err != nil {
		return nil, err
	}

	name := filename
	if !strings.HasSuffix(strings.ToLower(name), format.Extension()) {
		name += format.Extension()
	}
	return &File{Name: name, ContentType: format.ContentType(), Data: buf.Bytes()}, nil
}

func inferColumns(recs []records.Record) []catalog.Column {
	seen := make(map[string]struct{})
	for _, rec := range recs {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}

	fields := make([]string, 0, len(seen))
	for k := range seen {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	columns := make([]catalog.Column, len(fields))
	for i, f := range fields {
		columns[i] = catalog.Column{Field: f, Header: f}
	}
	return columns
}

// Cell renders a record value as spreadsheet text
func Cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(val, ",")
	case []interface{}:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = Cell(p)
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
