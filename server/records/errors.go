package records

import "github.com/gear6io/promptvalley/pkg/errors"

// Records-specific error codes
var (
	ErrOpenFailed        = errors.MustNewCode("records.open_failed")
	ErrMigrationFailed   = errors.MustNewCode("records.migration_failed")
	ErrSchemaLoadFailed  = errors.MustNewCode("records.schema_load_failed")
	ErrNotFound          = errors.MustNewCode("records.not_found")
	ErrUnknownColumn     = errors.MustNewCode("records.unknown_column")
	ErrInvalidValue      = errors.MustNewCode("records.invalid_value")
	ErrIDRequired        = errors.MustNewCode("records.id_required")
	ErrFilterRequired    = errors.MustNewCode("records.filter_required")
	ErrQueryFailed       = errors.MustNewCode("records.query_failed")
	ErrReadOnlyQuery     = errors.MustNewCode("records.read_only_query")
	ErrUniqueViolation   = errors.MustNewCode("records.unique_violation")
	ErrNotNullViolation  = errors.MustNewCode("records.not_null_violation")
	ErrForeignKeyMissing = errors.MustNewCode("records.foreign_key_violation")
	ErrCheckViolation    = errors.MustNewCode("records.check_violation")
)
