// Package limiter counts failed logins per identifier in Redis and blocks an
// identifier once it exceeds its budget for the current window.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited is returned by Check when the identifier is over budget.
var ErrLimited = errors.New("too many failed login attempts")

const keyPrefix = "youtube:login:fail:"

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter is a fixed-window failed-login counter. A nil *Limiter allows
// everything, which is how it runs when Redis is disabled.
type Limiter struct {
	redis  redis.UniversalClient
	cfg    Config
	logger *slog.Logger
}

// New creates a limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config, logger *slog.Logger) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &Limiter{redis: client, cfg: cfg, logger: logger}
}

// Check returns ErrLimited when identifier has used up its budget. Redis
// failures are logged and allowed through.
func (l *Limiter) Check(ctx context.Context, identifier string) error {
	if l == nil || identifier == "" {
		return nil
	}
	count, err := l.redis.Get(ctx, key(identifier)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.warn(ctx, "check", err)
		}
		return nil
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

// Fail records a failed attempt for identifier.
func (l *Limiter) Fail(ctx context.Context, identifier string) {
	if l == nil || identifier == "" {
		return
	}
	if _, err := l.incrementWithTTL(ctx, key(identifier)); err != nil {
		l.warn(ctx, "fail", err)
	}
}

// Reset clears the counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, identifier string) {
	if l == nil || identifier == "" {
		return
	}
	if err := l.redis.Del(ctx, key(identifier)).Err(); err != nil {
		l.warn(ctx, "reset", err)
	}
}

// Ping reports whether Redis answers.
func (l *Limiter) Ping(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.redis.Ping(ctx).Err()
}

func (l *Limiter) incrementWithTTL(ctx context.Context, k string) (int64, error) {
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", k, err)
	}

	// Fixed window: the TTL is set only by the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return 0, fmt.Errorf("expire %s: %w", k, err)
		}
	}

	return count, nil
}

func (l *Limiter) warn(ctx context.Context, op string, err error) {
	if l.logger == nil {
		return
	}
	l.logger.WarnContext(ctx, "login limiter unavailable, allowing request",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

func key(identifier string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(identifier))
}
