// Package runlock provides a Redis-backed settlement run lock for deployments where
// several instances share one database.
package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/storage"
)

const keyPrefix = "binarypay:runlock:"

// releaseScript deletes the key only while it still holds the caller's owner token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ storage.RunLocker = (*RedisLocker)(nil)

// RedisLocker implements storage.RunLocker with SET NX PX. The key expiry is the
// stale timeout, so a crashed run's lock disappears on its own.
type RedisLocker struct {
	client *redis.Client
}

// New connects to the Redis server at addr.
func New(ctx context.Context, addr string) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisLocker{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Key returns the Redis key guarding date.
func Key(date time.Time) string {
	return keyPrefix + models.FormatDate(date)
}

// AcquireRunLock sets the key for date if absent.
func (l *RedisLocker) AcquireRunLock(ctx context.Context, date time.Time, owner string, staleAfter time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, Key(date), owner, staleAfter).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire redis run lock: %w", err)
	}
	return ok, nil
}

// ReleaseRunLock deletes the key for date if owner still holds it.
func (l *RedisLocker) ReleaseRunLock(ctx context.Context, date time.Time, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{Key(date)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release redis run lock: %w", err)
	}
	return nil
}

// Close closes the client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
