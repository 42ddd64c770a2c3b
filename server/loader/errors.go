package loader

import "github.com/gear6io/promptvalley/pkg/errors"

// Loader-specific error codes
var (
	ErrComponentInitFailed = errors.MustNewCode("loader.component_init_failed")
	ErrUnknownBackend      = errors.MustNewCode("loader.unknown_backend")
	ErrHTTPStartFailed     = errors.MustNewCode("loader.http_start_failed")
)
