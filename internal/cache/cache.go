// Package cache stores vision descriptions keyed by image content so repeated
// runs over the same manual skip provider calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// New builds the client selected by cfg.Driver. It returns nil for "none".
func New(cfg config.CacheConfig) (Client, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryClient(cfg.MaxEntries), nil
	case "redis":
		c, err := NewRedisClient(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, domain.ConfigError("connect description cache", err)
		}
		return c, nil
	}
	return nil, domain.ConfigError("invalid cache driver: "+cfg.Driver, nil)
}

// CacheKey generates a cache key from components.
func CacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// DescriptionKey identifies one answer: the same image asked the same
// question of the same model.
func DescriptionKey(provider, model, prompt string, image []byte) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write(image)
	return CacheKey("desc", provider, model, hex.EncodeToString(h.Sum(nil)))
}

// ProviderPrefix selects every description produced by one provider.
func ProviderPrefix(provider string) string {
	return CacheKey("desc", provider) + ":"
}
