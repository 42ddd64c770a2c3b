package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// InternalError is implemented by package-local error types that know how to
// convert themselves into *Error (records.ConstraintError for instance)
type InternalError interface {
	error
	Transform() *Error
}

// As is re-exported so callers need not import both errors packages
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is re-exported so callers need not import both errors packages
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// IsAppError reports whether err is (or wraps) an *Error
func IsAppError(err error) bool {
	var e *Error
	return stderrors.As(err, &e)
}

// GetContext extracts the context map of the first *Error in the chain
func GetContext(err error) map[string]string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Context
	}
	return nil
}

// GetCode returns the code of the first *Error in the chain, or ""
func GetCode(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code.String()
	}
	return ""
}

// HasCode reports whether any *Error in the chain carries code
func HasCode(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code.Equals(code) {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// FormatError renders an error for logs with code, context and cause
func FormatError(err error) string {
	var e *Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Code: %s", e.Code))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts = append(parts, "Context:")
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("  %s: %v", k, e.Context[k]))
		}
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Cause))
	}

	return strings.Join(parts, "\n")
}

// AsError converts any error to *Error.
//
// InternalError values are converted through Transform, an existing *Error
// anywhere in the chain is returned as-is and everything else is wrapped in
// a common.internal error that keeps the original message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var ie InternalError
	if stderrors.As(err, &ie) {
		return ie.Transform()
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	return New(CommonInternal, err.Error(), err)
}
