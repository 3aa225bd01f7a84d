// Package cache implements a read-through (cache-aside) accessor whose store
// is strictly an optimization: every store failure degrades to calling the
// fetcher, and only fetcher errors ever reach the caller.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is applied when WithCache is called with a non-positive ttl.
const DefaultTTL = 300 * time.Second

// Store is the key-value boundary the accessor reads through.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	IsOpen() bool
	Connect(ctx context.Context) error
}

// Result carries a value and whether it was served from the store.
type Result[T any] struct {
	Data   T    `json:"data"`
	Cached bool `json:"cached"`
}

// Accessor wraps a Store with logging and metrics. A nil Accessor, or one
// with a nil Store, always calls the fetcher.
type Accessor struct {
	store   Store
	log     *zap.Logger
	metrics *Metrics
	ttl     time.Duration
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithMetrics records hits, misses and store errors.
func WithMetrics(m *Metrics) Option {
	return func(a *Accessor) { a.metrics = m }
}

// WithDefaultTTL overrides DefaultTTL for calls that pass ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(a *Accessor) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// New creates an accessor over store.
func New(store Store, log *zap.Logger, opts ...Option) *Accessor {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Accessor{store: store, log: log, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithCache returns the cached value for key when present and decodable.
// Otherwise it calls fetch, stores the JSON-encoded result with ttl and
// returns it uncached. Errors from fetch are returned as-is.
func WithCache[T any](ctx context.Context, a *Accessor, key string, fetch func(context.Context) (T, error), ttl time.Duration) (Result[T], error) {
	if raw, ok := a.lookup(ctx, key); ok {
		var v T
		err := json.Unmarshal([]byte(raw), &v)
		if err == nil {
			a.stats().hit()
			return Result[T]{Data: v, Cached: true}, nil
		}
		a.log.Warn("cache payload undecodable", zap.String("key", key), zap.Error(err))
		a.stats().storeError("decode")
	}
	a.stats().miss()

	v, err := fetch(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	a.save(ctx, key, v, ttl)
	return Result[T]{Data: v}, nil
}

// ClearCache deletes key. Failures are logged and never returned.
func (a *Accessor) ClearCache(ctx context.Context, key string) {
	if a == nil || a.store == nil {
		return
	}
	err := guard(func() error {
		if err := a.ensureOpen(ctx); err != nil {
			return err
		}
		return a.store.Del(ctx, key)
	})
	if err != nil {
		a.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		a.stats().storeError("del")
	}
}

func (a *Accessor) lookup(ctx context.Context, key string) (string, bool) {
	if a == nil || a.store == nil {
		return "", false
	}
	var (
		raw string
		ok  bool
	)
	err := guard(func() error {
		if err := a.ensureOpen(ctx); err != nil {
			return err
		}
		var err error
		raw, ok, err = a.store.Get(ctx, key)
		return err
	})
	if err != nil {
		a.log.Warn("cache read failed, falling back to origin", zap.String("key", key), zap.Error(err))
		a.stats().storeError("get")
		return "", false
	}
	return raw, ok
}

func (a *Accessor) save(ctx context.Context, key string, v any, ttl time.Duration) {
	if a == nil || a.store == nil {
		return
	}
	if ttl <= 0 {
		ttl = a.ttl
	}
	b, err := json.Marshal(v)
	if err != nil {
		a.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		a.stats().storeError("encode")
		return
	}
	err = guard(func() error {
		if err := a.ensureOpen(ctx); err != nil {
			return err
		}
		return a.store.SetEx(ctx, key, string(b), ttl)
	})
	if err != nil {
		a.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		a.stats().storeError("set")
	}
}

func (a *Accessor) stats() *Metrics {
	if a == nil {
		return nil
	}
	return a.metrics
}

func (a *Accessor) ensureOpen(ctx context.Context) error {
	if a.store.IsOpen() {
		return nil
	}
	return a.store.Connect(ctx)
}

// guard turns a panicking store call into an error so it is handled like any
// other store failure.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache store panic: %v", r)
		}
	}()
	return fn()
}
