package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/utils"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// column is one row of PRAGMA table_info
type column struct {
	Name    string `bun:"name"`
	Type    string `bun:"type"`
	NotNull bool   `bun:"notnull"`
	PK      int    `bun:"pk"`
}

// foreignKey is one row of PRAGMA foreign_key_list
type foreignKey struct {
	Table string `bun:"table"`
	From  string `bun:"from"`
	To    string `bun:"to"`
}

type tableInfo struct {
	columns     map[string]column
	foreignKeys []foreignKey
}

func (t *tableInfo) has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Store implements Gateway on SQLite through bun
type Store struct {
	db     *bun.DB
	path   string
	logger zerolog.Logger

	mu     sync.RWMutex
	tables map[string]*tableInfo
}

var _ Gateway = (*Store)(nil)

// Open opens (creating if needed) the catalog database at path and migrates it
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.New(ErrOpenFailed, "failed to create database directory", err).AddContext("path", path)
		}
	}

	sqldb, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.New(ErrOpenFailed, "failed to open SQLite database", err).AddContext("path", path)
	}
	// single writer; also keeps :memory: databases on one connection
	sqldb.SetMaxOpenConns(1)

	store, err := NewStore(ctx, bun.NewDB(sqldb, sqlitedialect.New()), logger)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	store.path = path
	return store, nil
}

// NewStore wraps an already opened bun DB, running migrations first
func NewStore(ctx context.Context, db *bun.DB, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "records").Logger(),
		tables: make(map[string]*tableInfo),
	}

	if err := NewMigrationManager(db, logger).MigrateToLatest(ctx); err != nil {
		return nil, err
	}

	if err := s.loadSchema(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// DB exposes the underlying bun handle for stores sharing the database
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrations returns a manager for inspecting migration state
func (s *Store) Migrations() *MigrationManager {
	return NewMigrationManager(s.db, s.logger)
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetType returns the component type identifier
func (s *Store) GetType() string {
	return "records"
}

// Shutdown closes the database
func (s *Store) Shutdown(ctx context.Context) error {
	return s.Close()
}

func (s *Store) loadSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range catalog.Names() {
		var cols []column
		if err := s.db.NewRaw(`SELECT name, type, "notnull", pk FROM pragma_table_info(?)`, name).Scan(ctx, &cols); err != nil {
			return errors.New(ErrSchemaLoadFailed, "failed to read table info", err).AddContext("table", name)
		}

		var fks []foreignKey
		if err := s.db.NewRaw(`SELECT "table", "from", "to" FROM pragma_foreign_key_list(?)`, name).Scan(ctx, &fks); err != nil {
			return errors.New(ErrSchemaLoadFailed, "failed to read foreign keys", err).AddContext("table", name)
		}

		info := &tableInfo{columns: make(map[string]column, len(cols)), foreignKeys: fks}
		for _, c := range cols {
			c.Type = strings.ToUpper(c.Type)
			info.columns[c.Name] = c
		}
		s.tables[name] = info
	}
	return nil
}

func (s *Store) table(resource string) (*tableInfo, error) {
	if _, err := catalog.Lookup(resource); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.tables[resource]
	if !ok || len(info.columns) == 0 {
		return nil, errors.New(catalog.ErrUnknownResource, "resource has no table", nil).AddContext("resource", resource)
	}
	return info, nil
}

// values validates column names and converts rec to bindable values
func (s *Store) values(resource string, info *tableInfo, rec Record) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		if !info.has(k) {
			return nil, errors.New(ErrUnknownColumn, "unknown column", nil).
				AddContext("resource", resource).
				AddContext("column", k)
		}

		switch val := v.(type) {
		case nil, string, bool, int, int32, int64, float32, float64, []byte, bun.Safe:
			out[k] = val
		case []string, []interface{}, map[string]interface{}:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, errors.New(ErrInvalidValue, "failed to encode value", err).AddContext("column", k)
			}
			out[k] = string(encoded)
		default:
			out[k] = val
		}
	}
	return out, nil
}

// Create inserts rec. Resources with an id column get a new record id when
// rec carries none.
func (s *Store) Create(ctx context.Context, resource string, rec Record) (Record, error) {
	info, err := s.table(resource)
	if err != nil {
		return nil, err
	}

	values, err := s.values(resource, info, rec)
	if err != nil {
		return nil, err
	}

	if info.has("id") {
		if id, _ := values["id"].(string); id == "" {
			values["id"] = utils.NewRecordID()
		}
	}

	if _, err := s.db.NewInsert().
		Model(&values).
		TableExpr("?", bun.Ident(resource)).
		Exec(ctx); err != nil {
		return nil, s.translate(ctx, resource, info, values, err)
	}

	s.logger.Debug().Str("resource", resource).Interface("id", values["id"]).Msg("Record created")

	if !info.has("id") {
		return Record(values), nil
	}
	return s.Get(ctx, resource, values["id"].(string))
}

// Upsert inserts rec or, when a row with the same id exists, overwrites the
// columns rec carries
func (s *Store) Upsert(ctx context.Context, resource string, rec Record) (Record, error) {
	info, err := s.table(resource)
	if err != nil {
		return nil, err
	}
	if !info.has("id") {
		return nil, errors.New(ErrIDRequired, "upsert needs a resource with an id column", nil).AddContext("resource", resource)
	}

	values, err := s.values(resource, info, rec)
	if err != nil {
		return nil, err
	}
	id, _ := values["id"].(string)
	if id == "" {
		return nil, errors.New(ErrIDRequired, "upsert needs a non-empty id", nil).AddContext("resource", resource)
	}

	q := s.db.NewInsert().
		Model(&values).
		TableExpr("?", bun.Ident(resource))

	cols := sortedKeys(values)
	updates := 0
	for _, col := range cols {
		if col == "id" {
			continue
		}
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
		updates++
	}
	if info.has("updated_at") && values["updated_at"] == nil {
		q = q.Set("updated_at = CURRENT_TIMESTAMP")
		updates++
	}
	if updates == 0 {
		q = q.On("CONFLICT (id) DO NOTHING")
	} else {
		q = q.On("CONFLICT (id) DO UPDATE")
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, s.translate(ctx, resource, info, values, err)
	}

	s.logger.Debug().Str("resource", resource).Str("id", id).Msg("Record upserted")
	return s.Get(ctx, resource, id)
}

// Update overwrites the columns rec carries on the row with id
func (s *Store) Update(ctx context.Context, resource, id string, rec Record) (Record, error) {
	info, err := s.table(resource)
	if err != nil {
		return nil, err
	}

	values, err := s.values(resource, info, rec)
	if err != nil {
		return nil, err
	}
	delete(values, "id")

	if len(values) == 0 {
		return s.Get(ctx, resource, id)
	}
	if info.has("updated_at") {
		if _, ok := values["updated_at"]; !ok {
			values["updated_at"] = bun.Safe("CURRENT_TIMESTAMP")
		}
	}

	res, err := s.db.NewUpdate().
		Model(&values).
		TableExpr("?", bun.Ident(resource)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, s.translate(ctx, resource, info, values, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFound(resource, id)
	}
	return s.Get(ctx, resource, id)
}

// Get returns the row with id
func (s *Store) Get(ctx context.Context, resource, id string) (Record, error) {
	rows, err := s.List(ctx, resource, Query{Filters: []Filter{Eq("id", id)}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound(resource, id)
	}
	return rows[0], nil
}

// List returns rows matching q
func (s *Store) List(ctx context.Context, resource string, q Query) ([]Record, error) {
	info, err := s.table(resource)
	if err != nil {
		return nil, err
	}

	sel := s.db.NewSelect().TableExpr("?", bun.Ident(resource))
	for _, col := range q.Columns {
		if !info.has(col) {
			return nil, unknownColumn(resource, col)
		}
		sel = sel.ColumnExpr("?", bun.Ident(col))
	}

	if err := applyFilters(resource, info, q.Filters, sel.QueryBuilder()); err != nil {
		return nil, err
	}

	for _, o := range q.Order {
		if !info.has(o.Column) {
			return nil, unknownColumn(resource, o.Column)
		}
		if o.Desc {
			sel = sel.OrderExpr("? DESC", bun.Ident(o.Column))
		} else {
			sel = sel.OrderExpr("? ASC", bun.Ident(o.Column))
		}
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	} else if q.Offset > 0 {
		// sqlite requires LIMIT before OFFSET
		sel = sel.Limit(-1)
	}

	var rows []map[string]interface{}
	if err := sel.Scan(ctx, &rows); err != nil && err != sql.ErrNoRows {
		return nil, errors.New(ErrQueryFailed, "failed to list records", err).AddContext("resource", resource)
	}

	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = normalize(info, row)
	}
	return out, nil
}

// Count returns the number of rows matching filters
func (s *Store) Count(ctx context.Context, resource string, filters ...Filter) (int, error) {
	info, err := s.table(resource)
	if err != nil {
		return 0, err
	}

	sel := s.db.NewSelect().TableExpr("?", bun.Ident(resource))
	if err := applyFilters(resource, info, filters, sel.QueryBuilder()); err != nil {
		return 0, err
	}

	n, err := sel.Count(ctx)
	if err != nil {
		return 0, errors.New(ErrQueryFailed, "failed to count records", err).AddContext("resource", resource)
	}
	return n, nil
}

// Delete removes rows matching filters. At least one filter is required.
func (s *Store) Delete(ctx context.Context, resource string, filters ...Filter) (int64, error) {
	info, err := s.table(resource)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, errors.New(ErrFilterRequired, "refusing to delete without a filter", nil).AddContext("resource", resource)
	}

	del := s.db.NewDelete().TableExpr("?", bun.Ident(resource))
	if err := applyFilters(resource, info, filters, del.QueryBuilder()); err != nil {
		return 0, err
	}

	res, err := del.Exec(ctx)
	if err != nil {
		return 0, s.translate(ctx, resource, info, nil, err)
	}
	n, _ := res.RowsAffected()
	s.logger.Debug().Str("resource", resource).Int64("deleted", n).Msg("Records deleted")
	return n, nil
}

// Raw runs a read-only statement and returns every row
func (s *Store) Raw(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	head := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return nil, errors.New(ErrReadOnlyQuery, "only SELECT statements may be passed through", nil)
	}

	var rows []map[string]interface{}
	if err := s.db.NewRaw(query, args...).Scan(ctx, &rows); err != nil && err != sql.ErrNoRows {
		return nil, errors.New(ErrQueryFailed, "raw query failed", err)
	}

	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = normalize(nil, row)
	}
	return out, nil
}

func applyFilters(resource string, info *tableInfo, filters []Filter, qb bun.QueryBuilder) error {
	for _, f := range filters {
		if !info.has(f.Column) {
			return unknownColumn(resource, f.Column)
		}
		switch f.Op {
		case OpEq, "":
			if f.Value == nil {
				qb.Where("? IS NULL", bun.Ident(f.Column))
			} else {
				qb.Where("? = ?", bun.Ident(f.Column), f.Value)
			}
		case OpNeq:
			if f.Value == nil {
				qb.Where("? IS NOT NULL", bun.Ident(f.Column))
			} else {
				qb.Where("? != ?", bun.Ident(f.Column), f.Value)
			}
		case OpIn:
			vals, err := inValues(f.Value)
			if err != nil {
				return err
			}
			if len(vals) == 0 {
				qb.Where("1 = 0")
				continue
			}
			qb.Where("? IN (?)", bun.Ident(f.Column), bun.In(vals))
		default:
			return errors.New(ErrInvalidValue, "unsupported filter operator", nil).AddContext("op", string(f.Op))
		}
	}
	return nil
}

func inValues(v interface{}) ([]interface{}, error) {
	switch vals := v.(type) {
	case []interface{}:
		return vals, nil
	case []string:
		out := make([]interface{}, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out, nil
	default:
		return nil, errors.New(ErrInvalidValue, "in filter needs a list value", nil)
	}
}

// normalize converts driver values: text bytes become strings and integer
// BOOLEAN columns become bools
func normalize(info *tableInfo, row map[string]interface{}) Record {
	rec := make(Record, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if info != nil {
			if c, ok := info.columns[k]; ok && c.Type == "BOOLEAN" {
				if n, ok := v.(int64); ok {
					v = n != 0
				}
			}
		}
		rec[k] = v
	}
	return rec
}

// translate converts driver errors into *ConstraintError or a records error
func (s *Store) translate(ctx context.Context, resource string, info *tableInfo, values map[string]interface{}, err error) error {
	ce, ok := constraintFromSQLite(resource, err)
	if !ok {
		return errors.New(ErrQueryFailed, "write failed", err).AddContext("resource", resource)
	}

	if ce.Code == CodeForeignKeyViolation && values != nil {
		s.resolveForeignKey(ctx, info, values, ce)
	} else if ce.Column != "" && values != nil {
		ce.Value = values[ce.Column]
	}

	s.logger.Debug().
		Str("resource", resource).
		Str("sqlstate", ce.Code).
		Str("column", ce.Column).
		Msg(ce.Message)
	return ce
}

// resolveForeignKey finds which referenced row is missing, since sqlite's
// FOREIGN KEY message names neither the column nor the value
func (s *Store) resolveForeignKey(ctx context.Context, info *tableInfo, values map[string]interface{}, ce *ConstraintError) {
	for _, fk := range info.foreignKeys {
		v, ok := values[fk.From]
		if !ok || v == nil {
			continue
		}
		n, err := s.db.NewSelect().
			TableExpr("?", bun.Ident(fk.Table)).
			Where("? = ?", bun.Ident(fk.To), v).
			Count(ctx)
		if err != nil || n > 0 {
			continue
		}
		ce.Column = fk.From
		ce.Value = v
		ce.Details = "Key (" + fk.From + ")=(" + toString(v) + ") is not present in table \"" + fk.Table + "\"."
		return
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func notFound(resource, id string) error {
	return errors.New(ErrNotFound, "record not found", nil).
		AddContext("resource", resource).
		AddContext("id", id)
}

func unknownColumn(resource, col string) error {
	return errors.New(ErrUnknownColumn, "unknown column", nil).
		AddContext("resource", resource).
		AddContext("column", col)
}
