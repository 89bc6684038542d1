package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheObserver interface {
	RecordCacheOperation(operation, result string)
}

// CacheService is a thin cache-aside facade over Redis. A nil service or a
// disabled flag turns every operation into a no-op so callers never branch on
// cache availability.
type CacheService struct {
	store    cacheStore
	enabled  bool
	ttl      time.Duration
	logger   *zap.Logger
	observer cacheObserver
}

// NewCacheService constructs the service. Passing a nil store disables it.
func NewCacheService(store cacheStore, enabled bool, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		store:   store,
		enabled: enabled && store != nil,
		ttl:     ttl,
		logger:  logger,
	}
}

// Instrument attaches a metrics observer for hit/miss accounting.
func (s *CacheService) Instrument(observer cacheObserver) {
	if s != nil {
		s.observer = observer
	}
}

func (s *CacheService) record(operation, result string) {
	if s != nil && s.observer != nil {
		s.observer.RecordCacheOperation(operation, result)
	}
}

// Enabled reports whether cache operations will reach the backing store.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled
}

// Get loads a cached value into dest. Returns pkg/errors.ErrCacheMiss when
// disabled or absent.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.Enabled() {
		return appErrors.ErrCacheMiss
	}
	err := s.store.Get(ctx, key, dest)
	switch {
	case err == nil:
		s.record("get", "hit")
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.record("get", "miss")
	default:
		s.record("get", "error")
	}
	return err
}

// Set stores a value under key with the configured TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
		s.record("set", "error")
		return err
	}
	s.record("set", "ok")
	return nil
}

// Invalidate drops all keys matching the pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	return s.store.DeleteByPattern(ctx, pattern)
}
