package config

import "github.com/gear6io/promptvalley/pkg/errors"

// Config-specific error codes
var (
	ErrConfigFileReadFailed    = errors.MustNewCode("config.file_read_failed")
	ErrConfigFileParseFailed   = errors.MustNewCode("config.file_parse_failed")
	ErrConfigValidationFailed  = errors.MustNewCode("config.validation_failed")
	ErrConfigFileMarshalFailed = errors.MustNewCode("config.file_marshal_failed")
	ErrConfigFileWriteFailed   = errors.MustNewCode("config.file_write_failed")
	ErrEnvFileLoadFailed       = errors.MustNewCode("config.env_file_load_failed")
	ErrDatabasePathRequired    = errors.MustNewCode("config.database_path_required")
	ErrStorageBackendInvalid   = errors.MustNewCode("config.storage_backend_invalid")
	ErrMinioEndpointRequired   = errors.MustNewCode("config.minio_endpoint_required")
	ErrDataPathRequired        = errors.MustNewCode("config.data_path_required")
	ErrInvalidPort             = errors.MustNewCode("config.invalid_port")
	ErrInvalidPageSize         = errors.MustNewCode("config.invalid_page_size")
	ErrInvalidConcurrency      = errors.MustNewCode("config.invalid_concurrency")

	// Logging-specific error codes
	ErrLogDirectoryCreationFailed = errors.MustNewCode("config.log_directory_creation_failed")
	ErrLogFileOpenFailed          = errors.MustNewCode("config.log_file_open_failed")
	ErrLogCleanupFailed           = errors.MustNewCode("config.log_cleanup_failed")
)
