package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/logger"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/validator"
)

// Response is the JSON envelope every endpoint returns.
//
// Successful responses carry Data and Success=true. Errors carry
// Success=false, a null Data and the list of detail messages in Errors.
type Response struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitempty"`
	Code       string   `json:"code,omitempty"`
	RequestID  string   `json:"requestId,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope. The envelope statusCode always
// matches the HTTP status.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// writeFailure writes an error envelope. Errors is always a non-nil slice so
// clients see "errors": [] rather than a missing key.
func writeFailure(w http.ResponseWriter, status int, code, message, requestID string, details []string) {
	if details == nil {
		details = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
		Data:       nil,
		Code:       code,
		RequestID:  requestID,
	})
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	Data       any      `json:"data"`
	Code       string   `json:"code"`
	RequestID  string   `json:"requestId,omitempty"`
}

// WriteError writes the error envelope for err. AppErrors keep their own
// status, code and message; sentinel errors map through apperrors.HTTPStatus;
// anything else becomes a 500 whose cause is logged but not exposed.
// It prefers the request-scoped logger from context over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeFailure(w, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", requestID, valErr.Messages())
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			l.ErrorContext(r.Context(), "internal error",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
		writeFailure(w, appErr.Status, appErr.Code, appErr.Message, requestID, appErr.Details)
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		code = "ALREADY_EXISTS"
		message = "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = "UNAUTHORIZED"
		message = "unauthorized request"
	case errors.Is(err, apperrors.ErrRateLimited):
		code = "RATE_LIMITED"
		message = "too many requests"
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeFailure(w, status, code, message, requestID, nil)
}

// WriteBadRequest writes a 400 envelope for a malformed request body.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeFailure(w, http.StatusBadRequest, "INVALID_INPUT", message,
		logger.CorrelationIDFromContext(r.Context()), nil)
}
