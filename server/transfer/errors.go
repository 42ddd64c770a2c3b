package transfer

import "github.com/gear6io/promptvalley/pkg/errors"

// Transfer-specific error codes
var (
	ErrInvalidFilename = errors.MustNewCode("transfer.invalid_filename")
	ErrInvalidState    = errors.MustNewCode("transfer.invalid_state")
	ErrNoRows          = errors.MustNewCode("transfer.no_rows")
	ErrEmptyRow        = errors.MustNewCode("transfer.empty_row")
	ErrLookupFailed    = errors.MustNewCode("transfer.lookup_failed")
	ErrTransformFailed = errors.MustNewCode("transfer.transform_failed")
	ErrExportFailed    = errors.MustNewCode("transfer.export_failed")
	ErrNotTransferable = errors.MustNewCode("transfer.not_transferable")
)
