package http

import (
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/gofiber/fiber/v2"
)

// HTTP-specific error codes
var (
	ErrInvalidBody    = errors.MustNewCode("http.invalid_body")
	ErrMissingFile    = errors.MustNewCode("http.missing_file")
	ErrNotPublic      = errors.MustNewCode("http.not_public")
	ErrRouteNotFound  = errors.MustNewCode("http.route_not_found")
	ErrRequestRefused = errors.MustNewCode("http.request_refused")
)

// ErrorBody is the payload of the error envelope
type ErrorBody struct {
	Code       string                   `json:"code"`
	Message    string                   `json:"message"`
	Context    map[string]string        `json:"context,omitempty"`
	Constraint *records.ConstraintError `json:"constraint,omitempty"`
}

// ErrorEnvelope wraps every failed response: {"error":{...}}
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

var statusByCode = map[string]int{
	records.ErrUniqueViolation.String():       fiber.StatusConflict,
	records.ErrForeignKeyMissing.String():     fiber.StatusConflict,
	records.ErrNotNullViolation.String():      fiber.StatusUnprocessableEntity,
	records.ErrCheckViolation.String():        fiber.StatusUnprocessableEntity,
	storage.ErrBucketNotEmpty.String():        fiber.StatusConflict,
	storage.ErrPayloadTooLarge.String():       fiber.StatusRequestEntityTooLarge,
	storage.ErrMimeTypeNotAllowed.String():    fiber.StatusUnsupportedMediaType,
	medialib.ErrBusy.String():                 fiber.StatusConflict,
	medialib.ErrConfirmationMismatch.String(): fiber.StatusBadRequest,
	transfer.ErrNotTransferable.String():      fiber.StatusBadRequest,
	transfer.ErrNoRows.String():               fiber.StatusBadRequest,
	sheet.ErrParseFailed.String():             fiber.StatusBadRequest,
	sheet.ErrFetchFailed.String():             fiber.StatusBadGateway,
	catalog.ErrUnknownResource.String():       fiber.StatusNotFound,
	ErrNotPublic.String():                     fiber.StatusBadRequest,
	errors.CommonCanceled.String():            499,
	errors.CommonTimeout.String():             fiber.StatusGatewayTimeout,
}

var badRequestMarkers = []string{"invalid", "required", "missing", "unknown", "unsupported", "mismatch", "read_only", "validation", "empty"}

// StatusFor maps an error code onto an HTTP status
func StatusFor(e *errors.Error) int {
	code := e.Code.String()
	if status, ok := statusByCode[code]; ok {
		return status
	}

	name := e.Code.Name()
	switch {
	case e.Code.HasSuffix("not_found"):
		return fiber.StatusNotFound
	case e.Code.HasSuffix("exists"), e.Code.HasSuffix("conflict"):
		return fiber.StatusConflict
	}
	for _, marker := range badRequestMarkers {
		if strings.Contains(name, marker) {
			return fiber.StatusBadRequest
		}
	}
	return fiber.StatusInternalServerError
}

// Envelope converts err into the wire envelope and its status
func Envelope(err error) (int, ErrorEnvelope) {
	if fe, ok := err.(*fiber.Error); ok {
		code := ErrRequestRefused
		if fe.Code == fiber.StatusNotFound {
			code = ErrRouteNotFound
		}
		return fe.Code, ErrorEnvelope{Error: ErrorBody{Code: code.String(), Message: fe.Message}}
	}

	e := errors.AsError(err)
	body := ErrorBody{
		Code:    e.Code.String(),
		Message: e.Message,
		Context: e.Context,
	}
	if ce, ok := records.AsConstraintError(err); ok {
		body.Constraint = ce
	}
	return StatusFor(e), ErrorEnvelope{Error: body}
}
