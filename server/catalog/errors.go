package catalog

import "github.com/gear6io/promptvalley/pkg/errors"

// Catalog-specific error codes
var (
	ErrUnknownResource = errors.MustNewCode("catalog.unknown_resource")
)
