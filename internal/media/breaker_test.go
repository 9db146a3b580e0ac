package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	calls int
	err   error
	block bool
}

func (f *fakeUploader) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &UploadResult{Key: "k", URL: "http://x/k"}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stagedFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	return p
}

func testBreakerConfig(name string) BreakerConfig {
	cfg := DefaultBreakerConfig(name, time.Second)
	cfg.MinRequests = 2
	cfg.OpenTimeout = time.Minute
	return cfg
}

func TestBreakerUploader_PassesThrough(t *testing.T) {
	next := &fakeUploader{}
	u := NewBreakerUploader(next, testBreakerConfig("pass"), quietLogger())

	res, err := u.Upload(context.Background(), "/tmp/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://x/k", res.URL)
	assert.Equal(t, 1, next.calls)
}

func TestBreakerUploader_EmptyPath(t *testing.T) {
	next := &fakeUploader{}
	u := NewBreakerUploader(next, testBreakerConfig("empty"), quietLogger())

	_, err := u.Upload(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Zero(t, next.calls)
}

func TestBreakerUploader_OpensAfterFailures(t *testing.T) {
	next := &fakeUploader{err: errors.New("s3 unavailable")}
	u := NewBreakerUploader(next, testBreakerConfig("trip"), quietLogger())

	for i := 0; i < 2; i++ {
		_, err := u.Upload(context.Background(), "/tmp/a.png")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, u.State())
	assert.Equal(t, float64(2), testutil.ToFloat64(breakerState.WithLabelValues("trip")))

	p := stagedFile(t)
	_, err := u.Upload(context.Background(), p)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, next.calls, "open breaker must not reach the backend")
	_, statErr := os.Stat(p)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestBreakerUploader_CallTimeout(t *testing.T) {
	next := &fakeUploader{block: true}
	cfg := testBreakerConfig("timeout")
	cfg.CallTimeout = 20 * time.Millisecond
	u := NewBreakerUploader(next, cfg, quietLogger())

	start := time.Now()
	_, err := u.Upload(context.Background(), "/tmp/a.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, float64(0), stateToFloat(gobreaker.StateClosed))
	assert.Equal(t, float64(1), stateToFloat(gobreaker.StateHalfOpen))
	assert.Equal(t, float64(2), stateToFloat(gobreaker.StateOpen))
}
