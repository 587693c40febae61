// Package handlers implements the scanwell HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/logging"
)

// validate checks request struct tags. Shared across handlers; the
// validator is safe for concurrent use.
var validate = validator.New()

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

// writeError writes a sanitized error reply, mapping the error's code
// to an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := scanerrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case scanerrors.CodeValidation, scanerrors.CodeInputMalformed:
		status = http.StatusBadRequest
	case scanerrors.CodeNotFound:
		status = http.StatusNotFound
	case scanerrors.CodeConflict:
		status = http.StatusConflict
	case scanerrors.CodeCapacityExceeded:
		status = http.StatusTooManyRequests
	case scanerrors.CodeEngineUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(code)})
}

// writeValidationError writes a 400 with the given message.
func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: message,
		Code:  string(scanerrors.CodeValidation),
	})
}

// parseJSON decodes the request body into v, rejecting unknown fields,
// then runs struct validation.
func parseJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
