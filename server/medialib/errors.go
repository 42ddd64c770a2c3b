package medialib

import "github.com/gear6io/promptvalley/pkg/errors"

// Media library error codes
var (
	ErrConfirmationMismatch = errors.MustNewCode("medialib.confirmation_mismatch")
	ErrPurgeFailed          = errors.MustNewCode("medialib.purge_failed")
	ErrBucketRemovalFailed  = errors.MustNewCode("medialib.bucket_removal_failed")
	ErrInvalidURL           = errors.MustNewCode("medialib.invalid_url")
	ErrInvalidFolderName    = errors.MustNewCode("medialib.invalid_folder_name")
	ErrBusy                 = errors.MustNewCode("medialib.busy")
)
