package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/utils"
	"github.com/rs/zerolog"
)

// RowStatus is the outcome of one imported row
type RowStatus string

const (
	RowSuccess RowStatus = "success"
	RowFailed  RowStatus = "failed"
)

// Outcome summarises a finished import
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// RowResult records what happened to one source row
type RowResult struct {
	Index   int                 `json:"index"`
	Status  RowStatus           `json:"status"`
	ID      string              `json:"id,omitempty"`
	Error   string              `json:"error,omitempty"`
	Data    sheet.Row           `json:"data"`
	Skipped map[string][]string `json:"skipped,omitempty"`
}

// Result is the per-row report of an import run
type Result struct {
	RunID      string      `json:"run_id"`
	Resource   string      `json:"resource"`
	Success    int         `json:"success"`
	Failed     int         `json:"failed"`
	Rows       []RowResult `json:"rows"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Total returns the number of rows processed
func (r *Result) Total() int {
	return r.Success + r.Failed
}

// Outcome is success when nothing failed, failed when nothing succeeded
// and partial otherwise
func (r *Result) Outcome() Outcome {
	switch {
	case r.Failed == 0:
		return OutcomeSuccess
	case r.Success == 0:
		return OutcomeFailed
	}
	return OutcomePartial
}

// FailedRows returns the failed rows in file order
func (r *Result) FailedRows() []RowResult {
	var out []RowResult
	for _, row := range r.Rows {
		if row.Status == RowFailed {
			out = append(out, row)
		}
	}
	return out
}

// ImportRequest is one import run against a resource
type ImportRequest struct {
	Resource      string
	Columns       []catalog.Column
	Relationships []catalog.Relationship
	Rows          []sheet.Row
	// Transform rewrites each record just before it is written
	Transform func(records.Record) (records.Record, error)
	// Progress receives the completed percentage after every row
	Progress func(percent float64)
}

// RequestFor builds a request from the registered mapping of res
func RequestFor(res *catalog.Resource, rows []sheet.Row) (ImportRequest, error) {
	if len(res.Columns) == 0 {
		return ImportRequest{}, errors.New(ErrNotTransferable, "resource has no column mapping", nil).
			AddContext("resource", res.Name)
	}
	return ImportRequest{
		Resource:      res.Name,
		Columns:       res.Columns,
		Relationships: res.Relationships,
		Rows:          rows,
	}, nil
}

// Importer writes sheet rows through a records gateway
type Importer struct {
	gateway   records.Gateway
	chunkSize int
	logger    zerolog.Logger
}

// NewImporter creates an importer. chunkSize bounds the ids per validation
// lookup.
func NewImporter(gateway records.Gateway, chunkSize int, logger zerolog.Logger) *Importer {
	if chunkSize <= 0 {
		chunkSize = config.DEFAULT_VALIDATION_CHUNK_SIZE
	}
	return &Importer{
		gateway:   gateway,
		chunkSize: chunkSize,
		logger:    logger.With().Str("component", "importer").Logger(),
	}
}

// Import writes rows one at a time in file order. A failing row is recorded
// and the run continues; only cancellation or a failed reference lookup
// stops it early, returning the rows processed so far.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*Result, error) {
	result := &Result{
		RunID:     utils.NewRunID(),
		Resource:  req.Resource,
		Rows:      make([]RowResult, 0, len(req.Rows)),
		StartedAt: time.Now().UTC(),
	}
	logger := im.logger.With().Str("run_id", result.RunID).Str("resource", req.Resource).Logger()

	schema := NewSchema(req.Columns, req.Relationships)
	prepared := schema.PrepareAll(req.Rows)

	skip, err := im.skippable(ctx, schema.Relations(), prepared)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("rows", len(prepared)).Msg("Import started")

	for i, p := range prepared {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = time.Now().UTC()
			return result, errors.New(errors.CommonCanceled, "import canceled", err).
				AddContext("run_id", result.RunID).
				AddContext("processed", fmt.Sprint(i))
		}

		row := im.importRow(ctx, req, schema, p, skip)
		if row.Status == RowSuccess {
			result.Success++
		} else {
			result.Failed++
			logger.Warn().Int("row", p.Index+1).Str("reason", row.Error).Msg("Row failed")
		}
		result.Rows = append(result.Rows, row)

		if req.Progress != nil {
			req.Progress(float64(i+1) / float64(len(prepared)) * 100)
		}
	}

	result.FinishedAt = time.Now().UTC()
	logger.Info().
		Int("success", result.Success).
		Int("failed", result.Failed).
		Str("outcome", string(result.Outcome())).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Import finished")
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, req ImportRequest, schema *Schema, p Prepared, skip map[string]map[string]struct{}) RowResult {
	row := RowResult{Index: p.Index, Data: p.Source}
	fail := func(err error) RowResult {
		row.Status = RowFailed
		row.Error = TranslateError(err)
		return row
	}

	if !p.OK() {
		return fail(p.Err)
	}

	rec := p.Record.Clone()
	if req.Transform != nil {
		transformed, err := req.Transform(rec)
		if err != nil {
			return fail(errors.New(ErrTransformFailed, err.Error(), err))
		}
		rec = transformed
	}

	var (
		saved records.Record
		err   error
	)
	if p.Upsert {
		saved, err = im.gateway.Upsert(ctx, req.Resource, rec)
	} else {
		saved, err = im.gateway.Create(ctx, req.Resource, rec)
	}
	if err != nil {
		return fail(err)
	}
	row.ID = saved.ID()

	for _, rel := range schema.Relations() {
		ids := p.Relations[rel.Field]
		if len(ids) == 0 {
			continue
		}
		source, target := rel.Keys(req.Resource)

		if p.Upsert {
			if _, err := im.gateway.Delete(ctx, rel.Junction, records.Eq(source, row.ID)); err != nil {
				return fail(err)
			}
		}

		for _, relatedID := range ids {
			if _, missing := skip[rel.Field][relatedID]; missing {
				if row.Skipped == nil {
					row.Skipped = make(map[string][]string)
				}
				row.Skipped[rel.Field] = append(row.Skipped[rel.Field], relatedID)
				continue
			}
			if _, err := im.gateway.Create(ctx, rel.Junction, records.Record{
				source: row.ID,
				target: relatedID,
			}); err != nil {
				return fail(err)
			}
		}
	}

	row.Status = RowSuccess
	return row
}

// skippable resolves, for relationships configured to skip missing ids,
// the ids that do not exist
func (im *Importer) skippable(ctx context.Context, rels []catalog.Relationship, prepared []Prepared) (map[string]map[string]struct{}, error) {
	var lenient []catalog.Relationship
	for _, rel := range rels {
		if rel.OnMissing == catalog.MissingSkip {
			lenient = append(lenient, rel)
		}
	}
	if len(lenient) == 0 {
		return nil, nil
	}

	missing, err := im.missingReferences(ctx, lenient, prepared)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]struct{}, len(missing))
	for field, ids := range missing {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		out[field] = set
	}
	return out, nil
}

// TranslateError turns a gateway failure into the message shown for a row
func TranslateError(err error) string {
	if err == nil {
		return ""
	}
	if ce, ok := records.AsConstraintError(err); ok {
		switch ce.Code {
		case records.CodeUniqueViolation:
			return "Duplicate ID - record already exists"
		case records.CodeNotNullViolation:
			return fmt.Sprintf("Missing required field: %s", ce.Column)
		case records.CodeForeignKeyViolation:
			return fmt.Sprintf("Invalid reference: %s=%v not found", ce.Column, ce.Value)
		}
		return ce.Message
	}
	if e := errors.AsError(err); e != nil {
		return e.Message
	}
	return err.Error()
}
