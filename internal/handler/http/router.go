package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VaibhavChawla151003/youtube-backend/internal/auth"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/health"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/middleware"
)

const serviceName = "youtube-backend"

// RouterConfig carries the settings the router needs beyond its collaborators.
type RouterConfig struct {
	Cookies        CookieConfig
	CORS           middleware.CORSConfig
	TempDir        string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	userService UserService,
	tokenValidator middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	userHandler := NewUserHandler(userService, cfg.Cookies, cfg.TempDir, cfg.MaxUploadBytes, logger)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Public endpoints, throttled per client IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

			r.Post("/register", userHandler.Register)
			r.With(ContentTypeJSON).Post("/login", userHandler.Login)
			r.With(ContentTypeJSON).Post("/refresh-token", userHandler.RefreshAccessToken)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Use(middleware.RequestLogger(logger))

			r.Post("/logout", userHandler.Logout)
			r.Get("/current-user", userHandler.GetCurrentUser)
		})
	})

	return r
}

// NewTokenValidator adapts the JWT manager to the auth middleware.
func NewTokenValidator(jwt *auth.JWTManager) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   claims.UserID,
			Email:    claims.Email,
			Username: claims.Username,
			FullName: claims.FullName,
		}, nil
	}
}
