// Package memory provides a process-local UserRepository. Records live in a
// map keyed by id; lookups by username or email scan the map.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
)

// UserRepository implements repository.UserRepository in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	// order keeps insertion order so OR lookups return the oldest match,
	// as the postgres implementation does.
	order []string
}

// NewUserRepository creates an empty in-memory repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

// Create stores a copy of u.
func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperrors.Conflict("user with email or username already exists")
		}
	}
	if _, ok := r.users[u.ID]; ok {
		return apperrors.Conflict("user id already exists")
	}

	c := *u
	r.users[u.ID] = &c
	r.order = append(r.order, u.ID)
	return nil
}

// GetByID returns a copy of the user with the given id.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *u
	return &c, nil
}

// FindByIdentifier returns the oldest user matching username or email.
func (r *UserRepository) FindByIdentifier(_ context.Context, username, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		u := r.users[id]
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// SetRefreshToken replaces the stored refresh token only. Writing the
// current value again changes nothing, updated_at included.
func (r *UserRepository) SetRefreshToken(_ context.Context, id, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if u.RefreshToken != token {
		u.RefreshToken = token
		u.UpdatedAt = time.Now().UTC()
	}
	c := *u
	return &c, nil
}
