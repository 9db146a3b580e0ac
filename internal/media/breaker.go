package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds configuration for the uploader circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of requests allowed in the half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before half-opening.
	OpenTimeout time.Duration

	// FailureRatio trips the breaker once reached after MinRequests.
	FailureRatio float64
	MinRequests  uint32

	// CallTimeout bounds a single upload.
	CallTimeout time.Duration
}

// DefaultBreakerConfig returns the defaults used for media uploads.
func DefaultBreakerConfig(name string, callTimeout time.Duration) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		OpenTimeout:  30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
		CallTimeout:  callTimeout,
	}
}

// ErrCircuitOpen is returned while the breaker rejects uploads.
var ErrCircuitOpen = gobreaker.ErrOpenState

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_uploader_breaker_state",
		Help: "Current state of the media uploader circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerUploader wraps an Uploader with a circuit breaker and a per-call
// deadline.
type BreakerUploader struct {
	next    Uploader
	breaker *gobreaker.CircuitBreaker[*UploadResult]
	timeout time.Duration
	logger  *slog.Logger
}

// NewBreakerUploader wraps next.
func NewBreakerUploader(next Uploader, cfg BreakerConfig, logger *slog.Logger) *BreakerUploader {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A missing file is the caller's problem, not the backend's.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoFile)
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerUploader{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*UploadResult](settings),
		timeout: cfg.CallTimeout,
		logger:  logger,
	}
}

// Upload forwards to the wrapped uploader unless the breaker is open. While
// open the staged file is still removed.
func (u *BreakerUploader) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	res, err := u.breaker.Execute(func() (*UploadResult, error) {
		callCtx := ctx
		if u.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, u.timeout)
			defer cancel()
		}
		return u.next.Upload(callCtx, localPath)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			_ = RemoveStaged(localPath)
		}
		return nil, fmt.Errorf("upload %s: %w", localPath, err)
	}
	return res, nil
}

// State returns the current state of the circuit breaker.
func (u *BreakerUploader) State() gobreaker.State {
	return u.breaker.State()
}
