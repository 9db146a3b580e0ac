package domain

import (
	"strings"
	"time"
)

// User is the identity record. RefreshToken holds the single refresh token
// currently accepted for the user; empty means no active session.
type User struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	PasswordHash  string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of u without credential material.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = ""
	return &c
}

// HasSession reports whether a refresh token is currently stored.
func (u *User) HasSession() bool {
	return u.RefreshToken != ""
}

// NormalizeUsername lower-cases and trims a username. Emails are kept as given.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// TokenPair is an access token and the refresh token that was persisted with it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
