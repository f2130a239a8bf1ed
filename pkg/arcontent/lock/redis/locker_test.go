package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, cfg Config) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg.RetryInterval = 5 * time.Millisecond
	locker, err := New(client, cfg)
	require.NoError(t, err)
	return locker, mr
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}

func TestLocker_LockUnlock(t *testing.T) {
	locker, mr := newTestLocker(t, Config{Prefix: "test:lock"})
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "markers:4")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:markers:4"))

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "markers:4")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("test:lock:markers:4"))

	unlock, err = locker.Lock(ctx, "markers:4")
	require.NoError(t, err)
	unlock()
}

func TestLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	locker, mr := newTestLocker(t, Config{TTL: time.Second})
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "sound:2")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := locker.Lock(ctx, "sound:2")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists("simple-ar:lock:sound:2"))

	fresh()
	assert.False(t, mr.Exists("simple-ar:lock:sound:2"))
}

func TestLocker_RedisDown(t *testing.T) {
	locker, mr := newTestLocker(t, Config{})
	mr.Close()

	_, err := locker.Lock(context.Background(), "image:1")
	assert.Error(t, err)
}
