package minio

import "github.com/gear6io/promptvalley/pkg/errors"

// MinIO backend error codes
var (
	ErrEndpointRequired     = errors.MustNewCode("minio.endpoint_required")
	ErrClientCreationFailed = errors.MustNewCode("minio.client_creation_failed")
)
