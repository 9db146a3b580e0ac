package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/VaibhavChawla151003/youtube-backend/internal/auth"
	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	"github.com/VaibhavChawla151003/youtube-backend/internal/limiter"
	"github.com/VaibhavChawla151003/youtube-backend/internal/media"
	"github.com/VaibhavChawla151003/youtube-backend/internal/repository"
	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
)

const (
	msgAllFieldsRequired   = "all fields are required"
	msgUserExists          = "user with email or username already exists"
	msgAvatarRequired      = "avatar file is required"
	msgPasswordTooLong     = "password must be at most 72 bytes"
	msgRegisterFailed      = "something went wrong while registering the user"
	msgIdentifierRequired  = "username or email is required"
	msgUserNotFound        = "user does not exist"
	msgInvalidCredentials  = "invalid user credentials"
	msgTokenFailure        = "something went wrong while generating refresh and access token"
	msgTooManyAttempts     = "too many failed login attempts, please try again later"
	msgUnauthorized        = "unauthorized request"
	msgInvalidRefreshToken = "invalid refresh token"
	msgRefreshTokenReused  = "refresh token is expired or used"
	msgInvalidAccessToken  = "invalid access token"
)

// Login outcomes recorded in auth_login_attempts_total.
const (
	outcomeSuccess            = "success"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeUnknownUser        = "unknown_user"
	outcomeRateLimited        = "rate_limited"
	outcomeError              = "error"
)

var loginAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Login attempts by outcome.",
	},
	[]string{"outcome"},
)

// TokenIssuer signs and validates session tokens.
type TokenIssuer interface {
	IssuePair(user *domain.User) (*domain.TokenPair, error)
	ValidateRefreshToken(token string) (*auth.RefreshClaims, error)
}

// PasswordHasher produces password hashes for new accounts.
type PasswordHasher interface {
	HashPassword(plain string) (string, error)
}

// LoginLimiter tracks failed logins per identifier.
type LoginLimiter interface {
	Check(ctx context.Context, identifier string) error
	Fail(ctx context.Context, identifier string)
	Reset(ctx context.Context, identifier string)
}

// EventPublisher emits user domain events. Failures are logged, never
// returned to callers.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, userID string) error
	PublishUserLoggedOut(ctx context.Context, userID string) error
}

// UserService implements registration and the session lifecycle.
type UserService struct {
	users    repository.UserRepository
	tokens   TokenIssuer
	hasher   PasswordHasher
	uploader media.Uploader
	limiter  LoginLimiter
	events   EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewUserService creates a new user service. limiter and events may be nil.
func NewUserService(
	users repository.UserRepository,
	tokens TokenIssuer,
	hasher PasswordHasher,
	uploader media.Uploader,
	limiter LoginLimiter,
	events EventPublisher,
	logger *slog.Logger,
) *UserService {
	if limiter == nil {
		limiter = noopLimiter{}
	}
	if events == nil {
		events = noopEvents{}
	}
	return &UserService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		uploader: uploader,
		limiter:  limiter,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// --- Input/Output types ---

// RegisterInput holds the parameters for registering a new user. The image
// paths point at files already staged on local disk.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput holds the parameters for logging in. Either Username or Email
// identifies the account.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is the sanitized user plus the freshly issued tokens.
type LoginResult struct {
	User   *domain.User
	Tokens *domain.TokenPair
}

// --- Operations ---

// Register creates a new account with an uploaded avatar and an optional
// cover image, and returns the stored user without credentials.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if missing := missingFields(input); len(missing) > 0 {
		return nil, apperrors.InvalidInput(msgAllFieldsRequired, missing...)
	}
	// Checked before any upload so a rejected password leaves nothing in storage.
	if len(input.Password) > auth.MaxPasswordBytes {
		return nil, apperrors.InvalidInput(msgPasswordTooLong)
	}

	username := domain.NormalizeUsername(input.Username)

	existing, err := s.users.FindByIdentifier(ctx, username, input.Email)
	switch {
	case err == nil && existing != nil:
		return nil, apperrors.Conflict(msgUserExists)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	if input.AvatarPath == "" {
		return nil, apperrors.InvalidInput(msgAvatarRequired)
	}

	avatar, err := s.uploader.Upload(ctx, input.AvatarPath)
	if err != nil || avatar == nil || avatar.URL == "" {
		s.logger.WarnContext(ctx, "avatar upload failed",
			slog.String("username", username),
			slog.Any("error", err),
		)
		return nil, apperrors.InvalidInput(msgAvatarRequired)
	}

	uploaded := []string{avatar.Key}

	var coverURL string
	if input.CoverImagePath != "" {
		cover, err := s.uploader.Upload(ctx, input.CoverImagePath)
		if err != nil {
			s.logger.WarnContext(ctx, "cover image upload failed, continuing without it",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		} else if cover != nil {
			coverURL = cover.URL
			uploaded = append(uploaded, cover.Key)
		}
	}

	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		s.logOrphanedUploads(ctx, "hash password", uploaded, err)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperrors.InvalidInput(msgPasswordTooLong)
		}
		return nil, apperrors.Internal(err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         input.Email,
		FullName:      input.FullName,
		AvatarURL:     avatar.URL,
		CoverImageURL: coverURL,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.logOrphanedUploads(ctx, "create user", uploaded, err)
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict(msgUserExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "registered user could not be reloaded",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.InternalMessage(msgRegisterFailed)
	}

	if err := s.events.PublishUserRegistered(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", created.ID),
		slog.String("username", created.Username),
	)

	return created.Sanitized(), nil
}

// Login verifies credentials, issues a token pair, stores the refresh token
// on the user and returns both.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := domain.NormalizeUsername(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" && email == "" {
		return nil, apperrors.InvalidInput(msgIdentifierRequired)
	}

	identifier := username
	if identifier == "" {
		identifier = email
	}

	if err := s.limiter.Check(ctx, identifier); err != nil {
		if errors.Is(err, limiter.ErrLimited) {
			loginAttempts.WithLabelValues(outcomeRateLimited).Inc()
			return nil, apperrors.TooManyRequests(msgTooManyAttempts)
		}
	}

	user, err := s.users.FindByIdentifier(ctx, username, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			loginAttempts.WithLabelValues(outcomeUnknownUser).Inc()
			return nil, apperrors.NotFoundMessage(msgUserNotFound)
		}
		loginAttempts.WithLabelValues(outcomeError).Inc()
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.VerifyPassword(user, input.Password) {
		s.limiter.Fail(ctx, identifier)
		loginAttempts.WithLabelValues(outcomeInvalidCredentials).Inc()
		s.logger.InfoContext(ctx, "login rejected",
			slog.String("user_id", user.ID),
			slog.String("reason", outcomeInvalidCredentials),
		)
		return nil, apperrors.InvalidCredentials(msgInvalidCredentials)
	}

	tokens, err := s.generateTokens(ctx, user.ID)
	if err != nil {
		loginAttempts.WithLabelValues(outcomeError).Inc()
		return nil, err
	}

	loggedIn, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		loginAttempts.WithLabelValues(outcomeError).Inc()
		return nil, fmt.Errorf("reload user: %w", err)
	}

	s.limiter.Reset(ctx, identifier)
	loginAttempts.WithLabelValues(outcomeSuccess).Inc()

	if err := s.events.PublishUserLoggedIn(ctx, loggedIn.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", loggedIn.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", loggedIn.ID),
	)

	return &LoginResult{User: loggedIn.Sanitized(), Tokens: tokens}, nil
}

// Logout clears the stored refresh token. Logging out a user that no longer
// exists is not an error.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if _, err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("clear refresh token: %w", err)
		}
		s.logger.WarnContext(ctx, "logout for unknown user",
			slog.String("user_id", userID),
		)
	}

	if err := s.events.PublishUserLoggedOut(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_out event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)
	return nil
}

// RefreshAccessToken exchanges the current refresh token for a new pair.
// The presented token must equal the one stored on the user, so each
// refresh token works once.
func (s *UserService) RefreshAccessToken(ctx context.Context, incoming string) (*domain.TokenPair, error) {
	if incoming == "" {
		return nil, apperrors.Unauthorized(msgUnauthorized)
	}

	claims, err := s.tokens.ValidateRefreshToken(incoming)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidRefreshToken)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidRefreshToken)
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	if !user.HasSession() || user.RefreshToken != incoming {
		s.logger.WarnContext(ctx, "refresh token mismatch",
			slog.String("user_id", user.ID),
			slog.Bool("active_session", user.HasSession()),
		)
		return nil, apperrors.Unauthorized(msgRefreshTokenReused)
	}

	tokens, err := s.generateTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)
	return tokens, nil
}

// GetCurrentUser returns the sanitized user behind an authenticated request.
func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidAccessToken)
		}
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return user.Sanitized(), nil
}

// --- Helpers ---

// generateTokens issues a pair for userID and persists its refresh token.
// Every failure collapses into one internal error; the cause is only logged.
func (s *UserService) generateTokens(ctx context.Context, userID string) (*domain.TokenPair, error) {
	fail := func(step string, err error) (*domain.TokenPair, error) {
		s.logger.ErrorContext(ctx, "token generation failed",
			slog.String("user_id", userID),
			slog.String("step", step),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.InternalMessage(msgTokenFailure)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fail("load user", err)
	}

	tokens, err := s.tokens.IssuePair(user)
	if err != nil {
		return fail("issue tokens", err)
	}

	if _, err := s.users.SetRefreshToken(ctx, userID, tokens.RefreshToken); err != nil {
		return fail("store refresh token", err)
	}

	return tokens, nil
}

// logOrphanedUploads records stored objects that no user record points at
// after a failed registration.
func (s *UserService) logOrphanedUploads(ctx context.Context, step string, keys []string, err error) {
	s.logger.WarnContext(ctx, "registration failed after media upload, objects orphaned",
		slog.String("step", step),
		slog.Any("keys", keys),
		slog.String("error", err.Error()),
	)
}

type noopLimiter struct{}

func (noopLimiter) Check(context.Context, string) error { return nil }
func (noopLimiter) Fail(context.Context, string)        {}
func (noopLimiter) Reset(context.Context, string)       {}

type noopEvents struct{}

func (noopEvents) PublishUserRegistered(context.Context, *domain.User) error { return nil }
func (noopEvents) PublishUserLoggedIn(context.Context, string) error         { return nil }
func (noopEvents) PublishUserLoggedOut(context.Context, string) error        { return nil }

// missingFields returns one detail per blank registration field.
func missingFields(in RegisterInput) []string {
	fields := []struct{ name, value string }{
		{"fullName", in.FullName},
		{"email", in.Email},
		{"username", in.Username},
		{"password", in.Password},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	return missing
}
