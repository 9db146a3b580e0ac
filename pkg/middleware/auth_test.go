package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VaibhavChawla151003/youtube-backend/pkg/logger"
)

func fakeValidator(valid string) TokenValidator {
	return func(token string) (*Claims, error) {
		if token != valid {
			return nil, errors.New("bad token")
		}
		return &Claims{UserID: "user-1", Username: "ab", Email: "a@b.com"}, nil
	}
}

func protected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := Auth(fakeValidator("good"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		assert.Equal(t, "user-1", logger.UserIDFromContext(r.Context()))
		assert.Equal(t, "ab", ClaimsFromContext(r.Context()).Username)
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestAuth_CookieToken(t *testing.T) {
	h, seen := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/current-user", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", *seen)
}

func TestAuth_BearerToken(t *testing.T) {
	h, seen := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/current-user", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", *seen)
}

func TestAuth_CookieTakesPrecedence(t *testing.T) {
	h, _ := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/current-user", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "stale"})
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing", "", "unauthorized request"},
		{"wrong scheme", "Basic good", "unauthorized request"},
		{"invalid token", "Bearer nope", "invalid access token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := protected(t)
			req := httptest.NewRequest(http.MethodPost, "/logout", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(http.StatusUnauthorized), body["statusCode"])
		})
	}
}
