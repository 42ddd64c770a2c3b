package sheet

import "github.com/gear6io/promptvalley/pkg/errors"

// Sheet-specific error codes
var (
	ErrUnsupportedFormat   = errors.MustNewCode("sheet.unsupported_format")
	ErrParseFailed         = errors.MustNewCode("sheet.parse_failed")
	ErrMissingHeader       = errors.MustNewCode("sheet.missing_header")
	ErrWriteFailed         = errors.MustNewCode("sheet.write_failed")
	ErrInvalidSheetURL     = errors.MustNewCode("sheet.invalid_sheet_url")
	ErrCredentialsRequired = errors.MustNewCode("sheet.credentials_required")
	ErrFetchFailed         = errors.MustNewCode("sheet.fetch_failed")
)
