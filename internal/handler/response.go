package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the API has one
// success shape and one error shape:
//
//	{"errors": [{"detail": "empty email rejected"}]}
//
// Clients match on the detail text, so messages from apperror are passed
// through unchanged. Anything that is not an *apperror.AppError is reported
// as a generic 500 and the real error is only logged.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/package-registry/internal/apperror"
)

// maxBodyBytes caps request bodies; every body this API accepts is tiny.
const maxBodyBytes = 1 << 20

// ErrorDetail is one entry of an error response.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Errors []ErrorDetail `json:"errors"`
}

// okResponse is the body of endpoints that only acknowledge.
type okResponse struct {
	OK bool `json:"ok"`
}

// writeJSON sets the header, then the status, then encodes the body.
// Headers written after the first body byte are ignored by net/http.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error kind to its HTTP status.
//
//	ErrValidation      → 400
//	ErrUnauthenticated → 401
//	ErrForbidden       → 403
//	ErrNotFound        → 404
//	ErrConflict        → 409
//	ErrTransient       → 503
//	anything else      → 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the standard error body.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		// The raw message may carry SQL or file paths; it stays in the log.
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}

	if status == http.StatusServiceUnavailable {
		slog.Warn("storage unavailable", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(appErr.Message))
}

func errorBody(detail string) ErrorResponse {
	return ErrorResponse{Errors: []ErrorDetail{{Detail: detail}}}
}

// decodeJSON reads a size-limited JSON body into dst. Malformed bodies are
// reported as validation errors.
func decodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// intParam parses an optional integer query parameter; absent means def.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("invalid %s: %q is not a number", name, raw))
	}
	return n, nil
}
