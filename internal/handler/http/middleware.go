package http

import (
	"net/http"
	"strings"

	"github.com/VaibhavChawla151003/youtube-backend/pkg/httputil"
)

// ContentTypeJSON rejects request bodies declared with a non-JSON
// Content-Type. Body-less requests and requests without the header pass, so
// refresh can rely on the cookie alone.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, map[string]any{
					"statusCode": http.StatusUnsupportedMediaType,
					"message":    "Content-Type must be application/json",
					"success":    false,
					"errors":     []string{},
					"data":       nil,
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
