package http

import (
	"net/http"
	"time"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/middleware"
)

const refreshTokenCookie = "refreshToken"

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	// AccessMaxAge and RefreshMaxAge bound cookie lifetime; zero makes a
	// session cookie.
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
	if maxAge > 0 {
		ck.MaxAge = int(maxAge.Seconds())
	}
	return ck
}

// setSessionCookies writes both token cookies.
func (c CookieConfig) setSessionCookies(w http.ResponseWriter, tokens *domain.TokenPair) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, tokens.AccessToken, c.AccessMaxAge))
	http.SetCookie(w, c.cookie(refreshTokenCookie, tokens.RefreshToken, c.RefreshMaxAge))
}

// clearSessionCookies expires both token cookies using the attributes they
// were set with.
func (c CookieConfig) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}
