package translation

import (
	"context"
	"log/slog"
	"time"

	"github.com/socialchef/recipebot/internal/cache"
)

// DefaultCacheTTL is how long a translated line is kept. Ingredient lines
// repeat a lot across recipes and translations do not go stale.
const DefaultCacheTTL = 7 * 24 * time.Hour

// CachedProvider remembers successful translations.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl}
}

// Translate implements Provider.
func (p *CachedProvider) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	key := pair.String() + "\x00" + text

	var cached string
	if found, err := p.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	translated, err := p.next.Translate(ctx, text, pair)
	if err != nil {
		return "", err
	}

	if err := p.cache.Set(ctx, key, translated, p.ttl); err != nil {
		slog.Warn("Failed to cache translation", "langpair", pair.String(), "error", err)
	}
	return translated, nil
}
