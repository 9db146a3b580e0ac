package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	"github.com/VaibhavChawla151003/youtube-backend/internal/service"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/httputil"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/middleware"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/validator"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

// UserService is the subset of *service.UserService the handlers call.
type UserService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	GetCurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

// UserHandler handles HTTP requests for the user endpoints.
type UserHandler struct {
	service        UserService
	cookies        CookieConfig
	stager         *stager
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc UserService, cookies CookieConfig, tempDir string, maxUploadBytes int64, logger *slog.Logger) *UserHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &UserHandler{
		service:        svc,
		cookies:        cookies,
		stager:         newStager(tempDir),
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// --- Request DTOs ---

// RegisterForm holds the text fields of the multipart registration form.
// Blank fields are left to the service so they report together. Email is
// only length-bounded; any non-blank value is accepted.
type RegisterForm struct {
	FullName string `json:"fullName" validate:"max=100"`
	Email    string `json:"email" validate:"max=254"`
	Username string `json:"username" validate:"max=50"`
	Password string `json:"password" validate:"max=72"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"max=50"`
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password" validate:"max=72"`
}

// RefreshTokenRequest is the optional JSON body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// --- Response types ---

// LoginResponse carries the user and both tokens in the body as well as in
// cookies, for clients that cannot read cookies.
type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequest(w, r, "request body too large")
			return
		}
		httputil.WriteBadRequest(w, r, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := RegisterForm{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	avatarPath, err := h.stager.stage(r, avatarField)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	coverPath, err := h.stager.stage(r, coverImageField)
	if err != nil {
		cleanup(avatarPath)
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup(avatarPath, coverPath)

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		FullName:       form.FullName,
		Email:          form.Email,
		Username:       form.Username,
		Password:       form.Password,
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteBadRequest(w, r, "invalid request body")
		return
	}

	res, err := h.service.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setSessionCookies(w, res.Tokens)
	httputil.WriteSuccess(w, http.StatusOK, LoginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.service.Logout(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.clearSessionCookies(w)
	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "user logged out")
}

// RefreshAccessToken handles POST /api/v1/users/refresh-token. The refresh
// token comes from the cookie, or from the JSON body when no cookie is sent.
func (h *UserHandler) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.Body != nil {
		var req RefreshTokenRequest
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			httputil.WriteBadRequest(w, r, "invalid request body")
			return
		}
		token = req.RefreshToken
	}

	tokens, err := h.service.RefreshAccessToken(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setSessionCookies(w, tokens)
	httputil.WriteSuccess(w, http.StatusOK, tokens, "access token refreshed")
}

// GetCurrentUser handles GET /api/v1/users/current-user
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetCurrentUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user, "current user fetched successfully")
}
