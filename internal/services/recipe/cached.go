package recipe

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/socialchef/recipebot/internal/cache"
)

// DefaultCacheTTL is how long a found recipe is served from cache.
const DefaultCacheTTL = 24 * time.Hour

// CachedProvider serves repeated lookups of the same dish from a cache.
// Only successful lookups are stored; misses and errors always reach the API.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with cache c.
func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl}
}

// Lookup implements Provider.
func (p *CachedProvider) Lookup(ctx context.Context, dishName string) (*Recipe, error) {
	key := cacheKey(dishName)

	var cached Recipe
	if found, err := p.cache.Get(ctx, key, &cached); err == nil && found {
		slog.Debug("Recipe cache hit", "dish_name", dishName)
		return &cached, nil
	}

	result, err := p.next.Lookup(ctx, dishName)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, result, p.ttl); err != nil {
		slog.Warn("Failed to cache recipe", "dish_name", dishName, "error", err)
	}

	return result, nil
}

func cacheKey(dishName string) string {
	return strings.ToLower(strings.Join(strings.Fields(dishName), " "))
}
