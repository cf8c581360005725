// Package cache provides a TTL key-value store behind one interface with two
// backends: Redis for deployments with a shared cache, and an in-process map
// for single-node or test runs. The backend is chosen once at startup; both
// honor the same TTL and miss semantics, so callers never see behavior switch
// underneath them.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the pluggable TTL store contract.
type Store interface {
	// Get unmarshals the cached value into dest. Returns ErrCacheMiss when
	// the key is absent or past its TTL.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores value under key for ttl. A zero ttl uses the store default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// New selects a backend by name ("redis" or "memory").
func New(backend string, redisCfg *RedisConfig, defaultTTL time.Duration) (Store, error) {
	switch backend {
	case "redis":
		return NewRedisStore(NewRedisClient(redisCfg), defaultTTL), nil
	case "memory":
		return NewMemoryStore(defaultTTL), nil
	default:
		return nil, errors.New("cache: unknown backend " + backend)
	}
}
