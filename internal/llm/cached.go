package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/spherical/manual-rag/internal/cache"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

// CachedProvider serves repeated requests from a cache. Cache failures are
// logged and bypassed; failed descriptions are never stored.
type CachedProvider struct {
	inner  domain.VisionProvider
	cache  cache.Client
	ttl    time.Duration
	logger *observability.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps inner with c.
func NewCachedProvider(inner domain.VisionProvider, c cache.Client, ttl time.Duration, logger *observability.Logger) *CachedProvider {
	if logger == nil {
		logger = observability.Nop()
	}
	return &CachedProvider{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: logger.WithOperation("description_cache"),
	}
}

// Ask returns a cached description or asks the wrapped provider.
func (p *CachedProvider) Ask(ctx context.Context, image domain.EncodedImage, prompt string, maxRetries int) (string, error) {
	key := cache.DescriptionKey(p.inner.ProviderName(), p.inner.ModelName(), prompt, image.Data)

	cached, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		p.hits.Add(1)
		return string(cached), nil
	case !errors.Is(err, cache.ErrCacheMiss):
		p.logger.WithContext(ctx).Warn().Err(err).Msg("cache read failed")
	}
	p.misses.Add(1)

	out, err := p.inner.Ask(ctx, image, prompt, maxRetries)
	if err != nil {
		return "", err
	}

	if err := p.cache.Set(ctx, key, []byte(out), p.ttl); err != nil {
		p.logger.WithContext(ctx).Warn().Err(err).Msg("cache write failed")
	}
	return out, nil
}

// CheckAvailability delegates to the wrapped provider.
func (p *CachedProvider) CheckAvailability(ctx context.Context) error {
	return p.inner.CheckAvailability(ctx)
}

// ProviderName delegates to the wrapped provider.
func (p *CachedProvider) ProviderName() string { return p.inner.ProviderName() }

// ModelName delegates to the wrapped provider.
func (p *CachedProvider) ModelName() string { return p.inner.ModelName() }

// Stats returns cache hits and misses so far.
func (p *CachedProvider) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}
