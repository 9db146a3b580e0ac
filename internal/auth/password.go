package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
)

// DefaultBcryptCost is used when a non-positive cost is configured.
const DefaultBcryptCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest password bcrypt accepts, counted in bytes
// of the UTF-8 encoding rather than characters.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by HashPassword for passwords over
// MaxPasswordBytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher produces bcrypt password hashes at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs outside bcrypt's accepted range fall back
// to DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// HashPassword returns the bcrypt hash of plain.
func (h *Hasher) HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", fmt.Errorf("hash password: %w", ErrPasswordTooLong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether candidate matches the user's stored hash.
// A nil user, an empty hash or a malformed hash all yield false.
func VerifyPassword(user *domain.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}
