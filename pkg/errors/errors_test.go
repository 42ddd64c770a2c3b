package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCode     = MustNewCode("test.code")
	testNotFound = MustNewCode("test.not_found")
)

func TestNewCode(t *testing.T) {
	valid := []string{
		"records.not_found",
		"storage.bucket_exists",
		"transfer.invalid_filename",
		"medialib.confirmation_mismatch",
	}
	for _, s := range valid {
		t.Run(s, func(t *testing.T) {
			code, err := NewCode(s)
			require.NoError(t, err)
			assert.Equal(t, s, code.String())
			assert.True(t, code.IsValid())
		})
	}

	invalid := []string{
		"invalid",
		"records.",
		".not_found",
		"Records.not_found",
		"records.not-found",
		"records..not_found",
		"error.not_found",
		"records.parse_err",
	}
	for _, s := range invalid {
		t.Run("invalid_"+s, func(t *testing.T) {
			_, err := NewCode(s)
			assert.Error(t, err)
		})
	}
}

func TestMustNewCodePanics(t *testing.T) {
	assert.Panics(t, func() { MustNewCode("Bad Code") })
	assert.NotPanics(t, func() { MustNewCode("sheet.unknown_format") })
}

func TestCodeParts(t *testing.T) {
	code := MustNewCode("storage.object_not_found")
	assert.Equal(t, "storage", code.Package())
	assert.Equal(t, "object_not_found", code.Name())
	assert.True(t, code.HasSuffix("not_found"))
	assert.False(t, code.HasSuffix("exists"))
	assert.True(t, code.Equals(MustNewCode("storage.object_not_found")))
}

func TestNew(t *testing.T) {
	cause := stderrors.New("disk full")
	err := New(testCode, "write failed", cause)

	assert.Equal(t, "test.code", err.Code.String())
	assert.Equal(t, "write failed", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, "write failed: disk full", err.Error())
	assert.False(t, err.Timestamp.IsZero())
	assert.NotEmpty(t, err.Stack)
	assert.ErrorIs(t, err, cause)
}

func TestNewWithoutCause(t *testing.T) {
	err := Newf(CommonValidation, "row %d is empty", 3)
	assert.Equal(t, "row 3 is empty", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrapf(testCode, base, "listing %s", "avatars")
	assert.Equal(t, "listing avatars", err.Message)
	assert.Same(t, base, err.Cause)
}

func TestAddContext(t *testing.T) {
	err := New(testNotFound, "bucket not found", nil).
		AddContext("bucket", "avatars").
		AddContext("op", "list")

	assert.Equal(t, map[string]string{"bucket": "avatars", "op": "list"}, GetContext(err))
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(testNotFound, "not found", nil)
	err := fmt.Errorf("outer: %w", New(testNotFound, "bucket avatars not found", nil))

	assert.True(t, Is(err, sentinel))
	assert.False(t, Is(err, New(testCode, "other", nil)))
	assert.True(t, HasCode(err, testNotFound))
	assert.False(t, HasCode(err, testCode))
	assert.Equal(t, "test.not_found", GetCode(err))
}

func TestFormatError(t *testing.T) {
	err := New(testCode, "import failed", stderrors.New("io")).
		AddContext("row", "4").
		AddContext("file", "prompts.csv")

	out := FormatError(err)
	assert.Contains(t, out, "Code: test.code")
	assert.Contains(t, out, "Message: import failed")
	assert.Contains(t, out, "  file: prompts.csv\n  row: 4")
	assert.Contains(t, out, "Cause: io")

	assert.Equal(t, "plain", FormatError(stderrors.New("plain")))
}
