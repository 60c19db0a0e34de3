package httpx

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/apperr"
)

// APIError represents a standardized error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeQuotaExceeded   = "QUOTA_EXCEEDED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// StatusFor maps an error kind onto its HTTP status and code
func StatusFor(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, ErrCodeInvalidInput
	case apperr.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge
	case apperr.KindQuotaExceeded:
		return http.StatusTooManyRequests, ErrCodeQuotaExceeded
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden, ErrCodeForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, ErrCodeUnauthorized
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// HandleError sends a standardized error response
func HandleError(w http.ResponseWriter, err *APIError, status int) {
	WriteJSON(w, status, err)
}

// WriteError translates err into a response. Internal failures are logged
// with full detail and reported to the client with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status, code := StatusFor(kind)

	evt := log.Warn()
	if kind == apperr.KindInternal {
		evt = log.Error()
	}
	evt.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	HandleError(w, &APIError{
		Code:    code,
		Message: apperr.Message(err),
	}, status)
}
