package memory

import (
	"crypto/md5"
	"encoding/hex"
)

// etag mirrors S3's single-part ETag: the hex MD5 of the content
func etag(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
