package profile

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"anchor/internal/attendance"
	"anchor/internal/cache"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
}

// Service serves profile reads through the cache and invalidates on writes.
type Service struct {
	store            Store
	cache            *cache.Accessor
	ttl              time.Duration
	defaultThreshold int
}

// NewService creates a service. A zero ttl uses the accessor's default.
func NewService(store Store, c *cache.Accessor, ttl time.Duration, defaultThreshold int) *Service {
	return &Service{store: store, cache: c, ttl: ttl, defaultThreshold: defaultThreshold}
}

// CacheKey is the cache key for a user's profile.
func CacheKey(userID string) string {
	return "profile:" + userID
}

// Get returns the profile and whether it came from cache.
func (s *Service) Get(ctx context.Context, userID string) (cache.Result[Profile], error) {
	return cache.WithCache(ctx, s.cache, CacheKey(userID), func(ctx context.Context) (Profile, error) {
		return s.store.Get(ctx, userID)
	}, s.ttl)
}

// Update validates and saves the profile, then drops the cached copy.
func (s *Service) Update(ctx context.Context, p Profile) (Profile, error) {
	if p.UserID == "" {
		return Profile{}, fmt.Errorf("%w: user id required", ErrInvalid)
	}
	if t := p.AttendanceThreshold; t != nil && (*t < 1 || *t > 100) {
		return Profile{}, fmt.Errorf("%w: attendance threshold must be between 1 and 100", ErrInvalid)
	}
	saved, err := s.store.Upsert(ctx, p)
	if err != nil {
		return Profile{}, err
	}
	s.cache.ClearCache(ctx, CacheKey(p.UserID))
	return saved, nil
}

// Threshold returns the user's attendance target, falling back to the
// configured default when the profile or setting is missing.
func (s *Service) Threshold(ctx context.Context, userID string) (int, error) {
	res, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return attendance.ResolveThreshold(nil, s.defaultThreshold), nil
	}
	if err != nil {
		return 0, err
	}
	return attendance.ResolveThreshold(res.Data.AttendanceThreshold, s.defaultThreshold), nil
}

// Location returns the user's timezone. A missing profile, an empty setting
// or an unknown zone name yields UTC.
func (s *Service) Location(ctx context.Context, userID string) (*time.Location, error) {
	res, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return time.UTC, nil
	}
	if err != nil {
		return nil, err
	}
	if res.Data.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(res.Data.Timezone)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}
