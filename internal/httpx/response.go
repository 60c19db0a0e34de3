package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/apperr"
	"sharedrop/internal/validation"
)

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Msg("failed to encode response")
	}
}

const maxJSONBody = 1 << 20

// DecodeJSON reads a JSON request body and runs struct validation on it.
// Field level failures are returned as the error details.
func DecodeJSON(w http.ResponseWriter, r *http.Request, op string, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, r, apperr.Validation(op, "Request body is empty"))
			return false
		}
		WriteError(w, r, apperr.Validation(op, "Invalid request body"))
		return false
	}

	if err := validation.Validate(dst); err != nil {
		details := validation.FormatError(err)
		log.Debug().
			Interface("errors", details).
			Str("op", op).
			Msg("validation errors")
		msg := "Invalid request"
		if len(details) > 0 {
			msg = details[0].Error
		}
		HandleError(w, &APIError{
			Code:    ErrCodeInvalidInput,
			Message: msg,
			Details: details,
		}, http.StatusBadRequest)
		return false
	}
	return true
}
