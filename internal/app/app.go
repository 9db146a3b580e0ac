package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/VaibhavChawla151003/youtube-backend/internal/auth"
	"github.com/VaibhavChawla151003/youtube-backend/internal/config"
	"github.com/VaibhavChawla151003/youtube-backend/internal/event"
	handler "github.com/VaibhavChawla151003/youtube-backend/internal/handler/http"
	"github.com/VaibhavChawla151003/youtube-backend/internal/limiter"
	"github.com/VaibhavChawla151003/youtube-backend/internal/media"
	mediamemory "github.com/VaibhavChawla151003/youtube-backend/internal/media/memory"
	medias3 "github.com/VaibhavChawla151003/youtube-backend/internal/media/s3"
	"github.com/VaibhavChawla151003/youtube-backend/internal/repository/postgres"
	"github.com/VaibhavChawla151003/youtube-backend/internal/service"
	"github.com/VaibhavChawla151003/youtube-backend/migrations"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/database"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/health"
	pkgkafka "github.com/VaibhavChawla151003/youtube-backend/pkg/kafka"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/middleware"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/tracing"
)

const (
	serviceName    = "youtube-backend"
	serviceVersion = "0.1.0"
	mediaKeyPrefix = "users"
)

// App wires together all dependencies and runs the backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, a.abort(fmt.Errorf("connect to postgres: %w", err))
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, a.abort(fmt.Errorf("run migrations: %w", err))
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Optional Redis-backed failed-login limiter.
	var (
		loginLimiter service.LoginLimiter
		redisLimiter *limiter.Limiter
	)
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, a.abort(fmt.Errorf("connect to redis: %w", err))
		}
		a.redis = client
		redisLimiter = limiter.New(client, limiter.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Window:      cfg.LoginWindow,
		}, logger)
		loginLimiter = redisLimiter
		logger.Info("connected to Redis", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))
	}

	// Optional Kafka producer for user lifecycle events.
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	uploader, err := newUploader(ctx, cfg, logger)
	if err != nil {
		return nil, a.abort(err)
	}

	// Build the dependency graph.
	jwtManager, err := auth.NewJWTManager(cfg.AccessTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenSecret, cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, a.abort(fmt.Errorf("init jwt manager: %w", err))
	}
	userRepo := postgres.NewUserRepository(pool)
	userService := service.NewUserService(
		userRepo,
		jwtManager,
		auth.NewHasher(cfg.BcryptCost),
		uploader,
		loginLimiter,
		events,
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisLimiter != nil {
		healthHandler.RegisterNonCritical("redis", redisLimiter.Ping)
	}
	if a.producer != nil {
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// HTTP router.
	router := handler.NewRouter(userService, handler.NewTokenValidator(jwtManager), healthHandler, logger, handler.RouterConfig{
		Cookies: handler.CookieConfig{
			Secure:        cfg.CookieSecure,
			SameSite:      cfg.SameSite(),
			AccessMaxAge:  jwtManager.AccessExpiry(),
			RefreshMaxAge: jwtManager.RefreshExpiry(),
		},
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		},
		TempDir:        cfg.MediaTempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.MediaUploadTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newUploader picks the media driver and wraps it in the circuit breaker.
func newUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (media.Uploader, error) {
	var next media.Uploader
	switch cfg.MediaDriver {
	case "s3":
		u, err := medias3.New(ctx, medias3.Config{
			Bucket:        cfg.MediaBucket,
			Region:        cfg.MediaRegion,
			Endpoint:      cfg.MediaEndpoint,
			AccessKey:     cfg.MediaAccessKey,
			SecretKey:     cfg.MediaSecretKey,
			PublicBaseURL: cfg.MediaPublicBaseURL,
			KeyPrefix:     mediaKeyPrefix,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init s3 uploader: %w", err)
		}
		next = u
	default:
		next = mediamemory.New(cfg.MediaPublicBaseURL)
	}
	logger.Info("media uploader initialized", slog.String("driver", cfg.MediaDriver))

	return media.NewBreakerUploader(next, media.DefaultBreakerConfig("media-"+cfg.MediaDriver, cfg.MediaUploadTimeout), logger), nil
}

// abort releases whatever NewApp had opened before failing.
func (a *App) abort(err error) error {
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
	}
	return err
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
