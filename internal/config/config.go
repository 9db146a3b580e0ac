package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	pkgconfig "github.com/VaibhavChawla151003/youtube-backend/pkg/config"
)

const defaultSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the youtube backend.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"youtube"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"youtube_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"youtube"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"30"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"5"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis backs the failed-login limiter.
	RedisEnabled     bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost        string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort        int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	// Cookies
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`

	// Media
	MediaDriver        string        `env:"MEDIA_DRIVER" envDefault:"memory"`
	MediaBucket        string        `env:"MEDIA_BUCKET" envDefault:"youtube-media"`
	MediaRegion        string        `env:"MEDIA_REGION" envDefault:"us-east-1"`
	MediaEndpoint      string        `env:"MEDIA_ENDPOINT"`
	MediaAccessKey     string        `env:"MEDIA_ACCESS_KEY"`
	MediaSecretKey     string        `env:"MEDIA_SECRET_KEY"`
	MediaPublicBaseURL string        `env:"MEDIA_PUBLIC_BASE_URL" envDefault:"http://localhost:9000"`
	MediaUploadTimeout time.Duration `env:"MEDIA_UPLOAD_TIMEOUT" envDefault:"30s"`
	MediaTempDir       string        `env:"MEDIA_TEMP_DIR" envDefault:"./public/temp"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// Per-IP throttle on the auth routes
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.MediaDriver {
	case "memory", "s3":
	default:
		return fmt.Errorf("invalid MEDIA_DRIVER %q: want memory or s3", c.MediaDriver)
	}
	if _, ok := parseSameSite(c.CookieSameSite); !ok {
		return fmt.Errorf("invalid COOKIE_SAMESITE %q", c.CookieSameSite)
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}

	// Outside development both secrets must be explicitly set and strong.
	if c.Environment != "development" {
		secrets := []struct{ name, value string }{
			{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
			{"REFRESH_TOKEN_SECRET", c.RefreshTokenSecret},
		}
		for _, s := range secrets {
			if s.value == defaultSecret {
				return fmt.Errorf("%s must be explicitly set via environment variable in %q mode", s.name, c.Environment)
			}
			if len(s.value) < 32 {
				return fmt.Errorf("%s must be at least 32 characters long, got %d", s.name, len(s.value))
			}
		}
		if c.AccessTokenSecret == c.RefreshTokenSecret {
			return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
		}
	}
	return nil
}

// SameSite returns the configured cookie SameSite mode.
func (c *Config) SameSite() http.SameSite {
	mode, _ := parseSameSite(c.CookieSameSite)
	return mode
}

func parseSameSite(s string) (http.SameSite, bool) {
	switch strings.ToLower(s) {
	case "", "lax":
		return http.SameSiteLaxMode, true
	case "strict":
		return http.SameSiteStrictMode, true
	case "none":
		return http.SameSiteNoneMode, true
	default:
		return http.SameSiteDefaultMode, false
	}
}
