package records

import (
	"fmt"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/mattn/go-sqlite3"
)

// SQLSTATE-style codes exposed on ConstraintError
const (
	CodeUniqueViolation     = "23505"
	CodeNotNullViolation    = "23502"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// ConstraintError is the structured rejection returned when a write
// violates a uniqueness, not-null, foreign key or check constraint
type ConstraintError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details string      `json:"details,omitempty"`
	Table   string      `json:"table,omitempty"`
	Column  string      `json:"column,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ConstraintError) Error() string {
	return e.Message
}

// Transform implements errors.InternalError
func (e *ConstraintError) Transform() *errors.Error {
	var code errors.Code
	switch e.Code {
	case CodeUniqueViolation:
		code = ErrUniqueViolation
	case CodeNotNullViolation:
		code = ErrNotNullViolation
	case CodeForeignKeyViolation:
		code = ErrForeignKeyMissing
	default:
		code = ErrCheckViolation
	}

	err := errors.New(code, e.Message, nil).AddContext("sqlstate", e.Code)
	if e.Table != "" {
		err.AddContext("table", e.Table)
	}
	if e.Column != "" {
		err.AddContext("column", e.Column)
	}
	if e.Details != "" {
		err.AddContext("details", e.Details)
	}
	return err
}

// AsConstraintError extracts a *ConstraintError from err's chain
func AsConstraintError(err error) (*ConstraintError, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// constraintFromSQLite converts a sqlite constraint failure. The bool is
// false when err is not a constraint failure at all. Foreign key failures
// carry no column in sqlite's message; the store fills Column and Value in.
func constraintFromSQLite(table string, err error) (*ConstraintError, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return nil, false
	}

	msg := se.Error()
	ce := &ConstraintError{Message: msg, Table: table}

	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		ce.Code = CodeUniqueViolation
		ce.Column = failedColumn(msg)
		ce.Details = fmt.Sprintf("Key (%s) already exists.", ce.Column)
	case sqlite3.ErrConstraintNotNull:
		ce.Code = CodeNotNullViolation
		ce.Column = failedColumn(msg)
		ce.Details = fmt.Sprintf("Failing row is missing %s.", ce.Column)
	case sqlite3.ErrConstraintForeignKey:
		ce.Code = CodeForeignKeyViolation
	default:
		ce.Code = CodeCheckViolation
	}
	return ce, true
}

// failedColumn pulls the first column out of messages like
// "NOT NULL constraint failed: prompts.title" or
// "UNIQUE constraint failed: prompt_tags.prompt_id, prompt_tags.tag_id"
func failedColumn(msg string) string {
	idx := strings.LastIndex(msg, "failed:")
	if idx == -1 {
		return ""
	}
	first := strings.TrimSpace(strings.Split(msg[idx+len("failed:"):], ",")[0])
	if dot := strings.LastIndex(first, "."); dot != -1 {
		return first[dot+1:]
	}
	return first
}
