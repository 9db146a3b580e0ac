package repository

import (
	"context"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. Username and email are each unique.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// FindByIdentifier returns the first user whose username equals username
	// OR whose email equals email. An empty argument never matches.
	FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error)

	// SetRefreshToken writes only the refresh token column and returns the
	// updated record. An empty token clears the session.
	SetRefreshToken(ctx context.Context, id, token string) (*domain.User, error)
}
