package runlock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	date := time.Date(2030, 7, 4, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "binarypay:runlock:2030-07-04", Key(date))
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	l, err := New(ctx, addr)
	require.NoError(t, err)
	defer l.Close()

	date := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.client.Del(ctx, Key(date)).Err())

	ok, err := l.AcquireRunLock(ctx, date, "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.AcquireRunLock(ctx, date, "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner release leaves the lock in place
	require.NoError(t, l.ReleaseRunLock(ctx, date, "second"))
	ok, err = l.AcquireRunLock(ctx, date, "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.ReleaseRunLock(ctx, date, "first"))
	ok, err = l.AcquireRunLock(ctx, date, "second", 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	// expiry plays the role of the stale timeout
	time.Sleep(200 * time.Millisecond)
	ok, err = l.AcquireRunLock(ctx, date, "third", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.ReleaseRunLock(ctx, date, "third"))
}
