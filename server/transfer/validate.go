package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/records"
)

// maxMissingShown caps the ids listed per warning
const maxMissingShown = 5

// ValidationWarning reports references in one field that do not resolve.
// Warnings are advisory; they never block an import.
type ValidationWarning struct {
	Field    string   `json:"field"`
	Resource string   `json:"resource"`
	Missing  []string `json:"missing"`
	Overflow int      `json:"overflow,omitempty"`
}

// Message renders the warning for display
func (w ValidationWarning) Message() string {
	msg := fmt.Sprintf("%s: %d missing %s reference(s): %s",
		w.Field, len(w.Missing)+w.Overflow, catalog.Singular(w.Resource), strings.Join(w.Missing, ", "))
	if w.Overflow > 0 {
		msg += fmt.Sprintf(" and %d more", w.Overflow)
	}
	return msg
}

// Validate looks up every referenced id and returns one warning per
// relationship field with unresolved ids, in declaration order
func (im *Importer) Validate(ctx context.Context, req ImportRequest) ([]ValidationWarning, error) {
	prepared := NewSchema(req.Columns, req.Relationships).PrepareAll(req.Rows)

	missing, err := im.missingReferences(ctx, req.Relationships, prepared)
	if err != nil {
		return nil, err
	}

	warnings := []ValidationWarning{}
	for _, rel := range req.Relationships {
		ids := missing[rel.Field]
		if len(ids) == 0 {
			continue
		}
		w := ValidationWarning{Field: rel.Field, Resource: rel.Resource, Missing: ids}
		if len(ids) > maxMissingShown {
			w.Missing = ids[:maxMissingShown]
			w.Overflow = len(ids) - maxMissingShown
		}
		warnings = append(warnings, w)
	}

	im.logger.Debug().Str("resource", req.Resource).Int("warnings", len(warnings)).Msg("Relationships validated")
	return warnings, nil
}

// missingReferences returns, per relationship field, the referenced ids
// that do not exist, in first-seen order
func (im *Importer) missingReferences(ctx context.Context, rels []catalog.Relationship, prepared []Prepared) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, rel := range rels {
		ids := referencedIDs(rel, prepared)
		if len(ids) == 0 {
			continue
		}

		found := make(map[string]struct{}, len(ids))
		for start := 0; start < len(ids); start += im.chunkSize {
			end := start + im.chunkSize
			if end > len(ids) {
				end = len(ids)
			}

			rows, err := im.gateway.List(ctx, rel.Resource, records.Query{
				Columns: []string{"id"},
				Filters: []records.Filter{records.In("id", ids[start:end])},
			})
			if err != nil {
				return nil, errors.New(ErrLookupFailed, "failed to look up referenced records", err).
					AddContext("field", rel.Field).
					AddContext("resource", rel.Resource)
			}
			for _, row := range rows {
				found[row.ID()] = struct{}{}
			}
		}

		for _, id := range ids {
			if _, ok := found[id]; !ok {
				out[rel.Field] = append(out[rel.Field], id)
			}
		}
	}
	return out, nil
}

func referencedIDs(rel catalog.Relationship, prepared []Prepared) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, dup := seen[id]; dup || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, p := range prepared {
		if !p.OK() {
			continue
		}
		if rel.Kind == catalog.ManyToMany {
			for _, id := range p.Relations[rel.Field] {
				add(id)
			}
			continue
		}
		if id, ok := p.Record[rel.Field].(string); ok {
			add(id)
		}
	}
	return ids
}
