package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyLock sync.Mutex
	entropy     = ulid.Monotonic(rand.Reader, 0)
)

// NewRecordID returns a lexically sortable identifier for catalog rows.
// IDs generated within the same millisecond stay strictly increasing.
func NewRecordID() string {
	return NewRecordIDAt(time.Now())
}

// NewRecordIDAt returns a record identifier carrying timestamp t
func NewRecordIDAt(t time.Time) string {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// RecordIDTime extracts the timestamp embedded in a record identifier
func RecordIDTime(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// IsRecordID reports whether s is a well-formed record identifier
func IsRecordID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// NewRunID identifies one import run or one uploaded object
func NewRunID() string {
	return uuid.NewString()
}
