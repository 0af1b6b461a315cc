package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Writes go to the primary store and then refresh the cache; reads check
// Redis first and fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	prefix  string
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		prefix:  "ledger:",
	}
}

// --- Write-through (write to primary, refresh cache) ---

func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.primary.Set(ctx, key, value); err != nil {
		return err
	}
	// A failed cache write only costs a miss; drop the key so no stale
	// value survives.
	if err := s.rdb.Set(ctx, s.cacheKey(key), value, s.ttl).Err(); err != nil {
		s.rdb.Del(ctx, s.cacheKey(key))
	}
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, key string) error {
	if err := s.primary.Delete(ctx, key); err != nil {
		return err
	}
	s.rdb.Del(ctx, s.cacheKey(key))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.cacheKey(key)).Bytes()
	if err == nil {
		return data, nil
	}

	// Cache miss (redis.Nil) or cache unavailable: read from primary.
	data, err = s.primary.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.rdb.Set(ctx, s.cacheKey(key), data, s.ttl)
	return data, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.primary.Keys(ctx, prefix)
}

// Close closes the primary store and the Redis client.
func (s *CachedStore) Close() error {
	return errors.Join(s.primary.Close(), s.rdb.Close())
}

func (s *CachedStore) cacheKey(key string) string { return s.prefix + key }
