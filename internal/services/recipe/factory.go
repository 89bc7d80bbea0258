package recipe

import (
	"github.com/socialchef/recipebot/internal/cache"
	"github.com/socialchef/recipebot/internal/config"
)

// NewProvider creates the recipe provider described by the configuration.
// When c is non-nil, successful lookups are cached.
func NewProvider(cfg *config.Config, c cache.Cache) Provider {
	var provider Provider = NewEdamamProvider(cfg.EdamamAppID, cfg.EdamamAppKey, cfg.EdamamBaseURL)

	if c != nil {
		provider = NewCachedProvider(provider, c, DefaultCacheTTL)
	}

	return provider
}
