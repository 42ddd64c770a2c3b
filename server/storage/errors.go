package storage

import "github.com/gear6io/promptvalley/pkg/errors"

// Storage-specific error codes
var (
	ErrBucketNotFound     = errors.MustNewCode("storage.bucket_not_found")
	ErrBucketExists       = errors.MustNewCode("storage.bucket_exists")
	ErrBucketNotEmpty     = errors.MustNewCode("storage.bucket_not_empty")
	ErrInvalidBucketName  = errors.MustNewCode("storage.invalid_bucket_name")
	ErrObjectNotFound     = errors.MustNewCode("storage.object_not_found")
	ErrObjectExists       = errors.MustNewCode("storage.object_exists")
	ErrInvalidPath        = errors.MustNewCode("storage.invalid_path")
	ErrPayloadTooLarge    = errors.MustNewCode("storage.payload_too_large")
	ErrMimeTypeNotAllowed = errors.MustNewCode("storage.mime_type_not_allowed")
	ErrMetadataFailed     = errors.MustNewCode("storage.metadata_failed")
	ErrBackendFailed      = errors.MustNewCode("storage.backend_failed")
)
