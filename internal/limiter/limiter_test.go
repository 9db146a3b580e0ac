package limiter

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := New(client, Config{MaxAttempts: max, Window: time.Minute}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return l, mr
}

func TestLimiter_BlocksAfterMaxFailures(t *testing.T) {
	l, _ := setupLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "ab"))
		l.Fail(ctx, "ab")
	}

	assert.ErrorIs(t, l.Check(ctx, "ab"), ErrLimited)
	assert.ErrorIs(t, l.Check(ctx, " AB "), ErrLimited, "identifier is normalized")
	assert.NoError(t, l.Check(ctx, "cd"))
}

func TestLimiter_WindowExpires(t *testing.T) {
	l, mr := setupLimiter(t, 1)
	ctx := context.Background()

	l.Fail(ctx, "ab")
	require.ErrorIs(t, l.Check(ctx, "ab"), ErrLimited)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"ab"))

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.Check(ctx, "ab"))
}

func TestLimiter_TTLSetOnlyOnFirstHit(t *testing.T) {
	l, mr := setupLimiter(t, 10)
	ctx := context.Background()

	l.Fail(ctx, "ab")
	mr.FastForward(30 * time.Second)
	l.Fail(ctx, "ab")

	assert.Equal(t, 30*time.Second, mr.TTL(keyPrefix+"ab"))
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := setupLimiter(t, 1)
	ctx := context.Background()

	l.Fail(ctx, "ab")
	require.ErrorIs(t, l.Check(ctx, "ab"), ErrLimited)

	l.Reset(ctx, "ab")
	assert.NoError(t, l.Check(ctx, "ab"))
}

func TestLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	l, mr := setupLimiter(t, 1)
	ctx := context.Background()
	l.Fail(ctx, "ab")

	mr.Close()

	assert.NoError(t, l.Check(ctx, "ab"))
	l.Fail(ctx, "ab")
	l.Reset(ctx, "ab")
	assert.Error(t, l.Ping(ctx))
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var l *Limiter
	ctx := context.Background()

	assert.NoError(t, l.Check(ctx, "ab"))
	l.Fail(ctx, "ab")
	l.Reset(ctx, "ab")
	assert.NoError(t, l.Ping(ctx))
}
