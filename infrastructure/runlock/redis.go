// Package runlock implements the batch run lock over Redis, with an
// in-process fallback for single-node installs.
package runlock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dwellsense/dwellsense/domain/batch"
)

// releaseScript frees the lock only when the caller still holds it, so a
// slow run that outlived its TTL cannot release its successor's lock.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLock is a Redis-backed implementation of batch.Lock using a SET NX
// lease.
type RedisLock struct {
	client *redis.Client
	key    string
}

// Config configures the Redis lock.
type Config struct {
	// Address is the Redis server address.
	Address string

	// Password is the optional auth password.
	Password string

	// DB is the database number.
	DB int

	// Key is the lock key.
	Key string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address: "localhost:6379",
		Key:     "dwellsense:batch:lock",
	}
}

// NewRedisLock creates a Redis lock and verifies the connection.
func NewRedisLock(cfg Config) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(errors.New("runlock: connection failed"), err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultConfig().Key
	}
	return &RedisLock{client: client, key: key}, nil
}

// NewRedisLockFromClient creates a lock from an existing client.
func NewRedisLockFromClient(client *redis.Client, key string) *RedisLock {
	if key == "" {
		key = DefaultConfig().Key
	}
	return &RedisLock{client: client, key: key}
}

// Acquire takes the lock for the holder or returns ErrRunLocked.
func (l *RedisLock) Acquire(ctx context.Context, holder string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, holder, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return batch.ErrRunLocked
	}
	return nil
}

// Release frees the lock if the holder still owns it.
func (l *RedisLock) Release(ctx context.Context, holder string) error {
	return l.client.Eval(ctx, releaseScript, []string{l.key}, holder).Err()
}

var _ batch.Lock = (*RedisLock)(nil)
