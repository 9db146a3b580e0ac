package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/database"
	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
)

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.FullName,
		u.AvatarURL,
		u.CoverImageURL,
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("user with email or username already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "GetUserByID", query, id)
}

// FindByIdentifier retrieves the user matching username or email. Empty
// halves are passed as NULL so they compare unknown and never match.
func (r *UserRepository) FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error) {
	if username == "" && email == "" {
		return nil, apperrors.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users
		WHERE username = NULLIF($1, '') OR email = NULLIF($2, '')
		ORDER BY created_at
		LIMIT 1`
	return r.scanUser(ctx, "FindUserByIdentifier", query, username, email)
}

// SetRefreshToken updates the refresh_token column alone. The row is only
// written when the value changes, so repeating a call leaves updated_at
// untouched; in that case the current row is read back instead.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) (*domain.User, error) {
	query := `UPDATE users SET refresh_token = NULLIF($1, ''), updated_at = $2
		WHERE id = $3 AND refresh_token IS DISTINCT FROM NULLIF($1, '')
		RETURNING ` + userColumns
	u, err := r.scanUser(ctx, "SetRefreshToken", query, token, time.Now().UTC(), id)
	if errors.Is(err, apperrors.ErrNotFound) {
		// Either the token is already stored or the user is gone.
		return r.GetByID(ctx, id)
	}
	return u, err
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, operation, query string, args ...any) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var u domain.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}
