package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client and doubles as the cache key-value store.
type Redis struct {
	Client *redis.Client
	open   atomic.Bool
}

// NewRedis builds a client with short timeouts. No connection is made until
// Connect or the first command.
func NewRedis(addr, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// IsOpen reports whether the last Connect or command saw a live server.
func (r *Redis) IsOpen() bool {
	return r != nil && r.open.Load()
}

// Connect pings the server and marks the store open on success.
func (r *Redis) Connect(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis: client not configured")
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		r.open.Store(false)
		return err
	}
	r.open.Store(true)
	return nil
}

// Get returns the value for key; ok is false when the key is absent.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.open.Store(false)
		return "", false, err
	}
	return val, true, nil
}

// SetEx stores value under key with the given expiry.
func (r *Redis) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.open.Store(false)
		return err
	}
	return nil
}

// Del removes key. Deleting a missing key is not an error.
func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.Client.Del(ctx, key).Err(); err != nil {
		r.open.Store(false)
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	r.open.Store(false)
	return r.Client.Close()
}
