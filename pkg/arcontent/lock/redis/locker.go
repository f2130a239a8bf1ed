// Package redis provides a Locker shared by every process talking to the same
// Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config options for the Redis locker
type Config struct {
	Prefix        string        // key prefix, default "simple-ar:lock"
	TTL           time.Duration // lease length, default 30s
	RetryInterval time.Duration // poll interval while waiting, default 50ms
}

// Locker implements arcontent.Locker with SET NX PX leases.
type Locker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

var _ arcontent.Locker = (*Locker)(nil)

// New returns a Locker using client.
func New(client redis.Cmdable, cfg Config) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "simple-ar:lock"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl, retry: retry}, nil
}

// Lock polls until the lease for key is acquired or ctx is done. The lease
// expires after TTL even if the holder never unlocks.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + ":" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// The caller's ctx may already be cancelled when unlocking.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}
