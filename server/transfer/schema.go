package transfer

import (
	"strconv"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
)

// coercion is how a cell becomes a record value
type coercion int

const (
	// coerceText keeps the cell, turning "true"/"false" into booleans
	coerceText coercion = iota
	// coerceIdentifier trims the cell; blank means no reference
	coerceIdentifier
	// coerceRelationList splits a comma list into related ids
	coerceRelationList
)

type field struct {
	name     string
	coercion coercion
}

// Schema is the header mapping of one resource, resolved once per import
type Schema struct {
	byHeader  map[string]field
	byFold    map[string]field
	relations []catalog.Relationship
}

// NewSchema resolves the column mapping. Headers match exactly first, then
// case-insensitively by header or field name.
func NewSchema(columns []catalog.Column, relationships []catalog.Relationship) *Schema {
	s := &Schema{
		byHeader: make(map[string]field, len(columns)),
		byFold:   make(map[string]field, len(columns)*2),
	}

	kinds := make(map[string]catalog.RelationKind, len(relationships))
	for _, rel := range relationships {
		kinds[rel.Field] = rel.Kind
		if rel.Kind == catalog.ManyToMany {
			s.relations = append(s.relations, rel)
		}
	}

	for _, col := range columns {
		f := field{name: col.Field, coercion: coerceText}
		switch {
		case kinds[col.Field] == catalog.ManyToMany:
			f.coercion = coerceRelationList
		case kinds[col.Field] == catalog.OneToOne, col.Field == "id":
			f.coercion = coerceIdentifier
		}
		s.byHeader[col.Header] = f
		s.byFold[strings.ToLower(col.Header)] = f
		if _, taken := s.byFold[strings.ToLower(col.Field)]; !taken {
			s.byFold[strings.ToLower(col.Field)] = f
		}
	}
	return s
}

// Relations returns the many-to-many relationships the schema writes
func (s *Schema) Relations() []catalog.Relationship {
	return s.relations
}

func (s *Schema) lookup(header string) (field, bool) {
	if f, ok := s.byHeader[header]; ok {
		return f, true
	}
	f, ok := s.byFold[strings.ToLower(strings.TrimSpace(header))]
	return f, ok
}

// Prepared is one row after mapping: either a record ready to write or the
// reason the row cannot be written
type Prepared struct {
	Index     int
	Source    sheet.Row
	Record    records.Record
	Relations map[string][]string
	Upsert    bool
	Err       error
}

// OK reports whether the row can be written
func (p Prepared) OK() bool {
	return p.Err == nil
}

// ID returns the id the row carries, or "" for rows that create
func (p Prepared) ID() string {
	return p.Record.ID()
}

// Prepare maps one row. Unmapped headers are dropped, many-to-many cells
// move to Relations, empty cells are left out so column defaults apply and
// a blank id means create.
func (s *Schema) Prepare(index int, row sheet.Row) Prepared {
	p := Prepared{
		Index:     index,
		Source:    row,
		Record:    make(records.Record, len(row)),
		Relations: make(map[string][]string),
	}

	for header, cell := range row {
		f, ok := s.lookup(header)
		if !ok {
			continue
		}

		switch f.coercion {
		case coerceRelationList:
			if ids := SplitList(cell); len(ids) > 0 {
				p.Relations[f.name] = ids
			}
		case coerceIdentifier:
			if id := strings.TrimSpace(cell); id != "" {
				p.Record[f.name] = id
			}
		default:
			if cell != "" {
				p.Record[f.name] = coerceCell(cell)
			}
		}
	}

	p.Upsert = p.Record.ID() != ""
	if len(p.Record) == 0 && len(p.Relations) == 0 {
		p.Err = errors.New(ErrEmptyRow, "row has no mapped columns", nil).AddContext("row", strconv.Itoa(index+1))
	}
	return p
}

// PrepareAll maps every row in file order
func (s *Schema) PrepareAll(rows []sheet.Row) []Prepared {
	out := make([]Prepared, len(rows))
	for i, row := range rows {
		out[i] = s.Prepare(i, row)
	}
	return out
}

// SplitList splits a comma list, trimming entries and dropping blanks and
// repeats
func SplitList(cell string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func coerceCell(cell string) interface{} {
	switch strings.ToLower(cell) {
	case "true":
		return true
	case "false":
		return false
	}
	return cell
}
