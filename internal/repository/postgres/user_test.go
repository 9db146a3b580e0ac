package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/database"
	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := database.NewMockPool(t)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:            "6f1c1c1e-0000-4000-8000-000000000001",
		Username:      "chaiaurcode",
		Email:         "chai@example.com",
		FullName:      "Chai Aur Code",
		AvatarURL:     "http://media/avatar.png",
		CoverImageURL: "",
		PasswordHash:  "hash-abc",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// userRowColumns are the ten columns scanned by scanUser.
func userRowColumns() []string {
	return []string{
		"id", "username", "email", "full_name", "avatar_url",
		"cover_image_url", "password_hash", "refresh_token", "created_at", "updated_at",
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userRowColumns()).AddRow(
		u.ID, u.Username, u.Email, u.FullName, u.AvatarURL,
		u.CoverImageURL, u.PasswordHash, u.RefreshToken, u.CreatedAt, u.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Username, u.Email, u.FullName, u.AvatarURL,
			u.CoverImageURL, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Username, u.Email, u.FullName, u.AvatarURL,
			u.CoverImageURL, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "expected ErrConflict, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Username, u.Email, u.FullName, u.AvatarURL,
			u.CoverImageURL, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnError(fmt.Errorf("connection refused"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
	assert.False(t, errors.Is(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestUserRepository_GetByID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.RefreshToken = "rt-1"

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "rt-1", got.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// FindByIdentifier
// ---------------------------------------------------------------------------

func TestUserRepository_FindByIdentifier_ORLookup(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT .+ FROM users\\s+WHERE username = NULLIF\\(\\$1, ''\\) OR email = NULLIF\\(\\$2, ''\\)").
		WithArgs(u.Username, "").
		WillReturnRows(userRow(u))

	got, err := repo.FindByIdentifier(context.Background(), u.Username, "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIdentifier_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("nobody", "nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByIdentifier(context.Background(), "nobody", "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIdentifier_BothEmptySkipsQuery(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	_, err := repo.FindByIdentifier(context.Background(), "", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// SetRefreshToken
// ---------------------------------------------------------------------------

func TestUserRepository_SetRefreshToken_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.RefreshToken = "rt-new"

	mock.ExpectQuery("UPDATE users SET refresh_token = NULLIF\\(\\$1, ''\\)").
		WithArgs("rt-new", pgxmock.AnyArg(), u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.SetRefreshToken(context.Background(), u.ID, "rt-new")
	require.NoError(t, err)
	assert.Equal(t, "rt-new", got.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRefreshToken_Idempotent(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.RefreshToken = "rt-same"

	mock.ExpectQuery("UPDATE users SET refresh_token = NULLIF\\(\\$1, ''\\)").
		WithArgs("rt-same", pgxmock.AnyArg(), u.ID).
		WillReturnRows(userRow(u))
	// The second write matches no row because the value is unchanged.
	mock.ExpectQuery("refresh_token IS DISTINCT FROM NULLIF\\(\\$1, ''\\)").
		WithArgs("rt-same", pgxmock.AnyArg(), u.ID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = \\$1").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	first, err := repo.SetRefreshToken(context.Background(), u.ID, "rt-same")
	require.NoError(t, err)
	second, err := repo.SetRefreshToken(context.Background(), u.ID, "rt-same")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRefreshToken_ClearReturnsEmpty(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("UPDATE users SET refresh_token").
		WithArgs("", pgxmock.AnyArg(), u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.SetRefreshToken(context.Background(), u.ID, "")
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRefreshToken_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE users SET refresh_token").
		WithArgs("rt", pgxmock.AnyArg(), "missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetRefreshToken(context.Background(), "missing", "rt")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRefreshToken_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE users SET refresh_token").
		WithArgs("rt", pgxmock.AnyArg(), "u-1").
		WillReturnError(fmt.Errorf("timeout"))

	_, err := repo.SetRefreshToken(context.Background(), "u-1", "rt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("ERROR: duplicate key (SQLSTATE 23505)")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
