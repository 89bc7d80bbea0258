package translation

import (
	"github.com/socialchef/recipebot/internal/cache"
	"github.com/socialchef/recipebot/internal/config"
)

// NewProvider builds MyMemory behind a circuit breaker, with a cache in
// front when c is non-nil. Cache hits never touch the breaker.
func NewProvider(cfg *config.Config, c cache.Cache) Provider {
	var provider Provider = NewMyMemoryProvider(cfg.Translation.BaseURL, cfg.Translation.Email)
	provider = NewBreakerProvider(provider)

	if c != nil {
		provider = NewCachedProvider(provider, c, DefaultCacheTTL)
	}

	return provider
}

// NewFromConfig returns the ingredient translator, or nil when translation is
// disabled.
func NewFromConfig(cfg *config.Config, c cache.Cache) *Translator {
	if !cfg.Translation.IsEnabled() {
		return nil
	}
	pair := LangPair{Source: cfg.Translation.Source, Target: cfg.Translation.Target}
	return NewTranslator(NewProvider(cfg, c), pair)
}
