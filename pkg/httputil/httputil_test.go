package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/logger"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeRaw(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	return raw
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "hello"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- WriteSuccess ---

func TestWriteSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusOK, map[string]string{"username": "ab"}, "user logged in successfully")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Success)
	assert.Equal(t, "user logged in successfully", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestWriteSuccess_CreatedStatusMatchesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusCreated, struct{}{}, "created")

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestWriteSuccess_OmitsErrorKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusOK, nil, "ok")

	raw := decodeRaw(t, rec)
	_, hasErrors := raw["errors"]
	assert.False(t, hasErrors)
	assert.Equal(t, "null", string(raw["data"]))
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	WriteError(rec, req, apperrors.NotFoundMessage("user does not exist"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.Success)
	assert.Equal(t, "user does not exist", resp.Message)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestWriteError_EnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	WriteError(rec, req, apperrors.InvalidCredentials("invalid user credentials"), testLogger())

	raw := decodeRaw(t, rec)
	assert.Equal(t, "[]", string(raw["errors"]))
	assert.Equal(t, "null", string(raw["data"]))
	assert.Equal(t, "false", string(raw["success"]))
	assert.Equal(t, "401", string(raw["statusCode"]))
}

func TestWriteError_AppErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", nil)

	WriteError(rec, req, apperrors.InvalidInput("all fields are required", "email is required"), testLogger())

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"email is required"}, resp.Errors)
}

func TestWriteError_ValidationError(t *testing.T) {
	type form struct {
		Password string `json:"password" validate:"required"`
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	WriteError(rec, req, validator.Validate(form{}), testLogger())

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, []string{"password is required"}, resp.Errors)
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			WriteError(rec, req, fmt.Errorf("wrapped: %w", tt.err), testLogger())

			var resp Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestWriteError_UnknownError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, fmt.Errorf("pq: connection refused"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	req := httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "corr-123", resp.RequestID)
}

func TestWriteError_NoCorrelationID_OmitsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	raw := decodeRaw(t, rec)
	_, hasRequestID := raw["requestId"]
	assert.False(t, hasRequestID)
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	WriteBadRequest(rec, req, "invalid request body")

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", resp.Message)
	assert.False(t, resp.Success)
}
