package translation

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/metrics"
)

const (
	OutcomeTranslated = "ok"
	OutcomeFallback   = "fallback"
)

// Translator is the call site's view of translation: it never fails.
// Whenever the provider errors, the original text is returned unchanged.
type Translator struct {
	provider Provider
	pair     LangPair
}

func NewTranslator(provider Provider, pair LangPair) *Translator {
	return &Translator{provider: provider, pair: pair}
}

// Pair returns the language pair the translator was built for.
func (t *Translator) Pair() LangPair {
	return t.pair
}

// Translate returns text translated into the target language, or text
// itself when it is blank or the provider fails.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	translated, err := t.provider.Translate(ctx, text, t.pair)
	if err != nil {
		slog.WarnContext(ctx, "Translation failed, using original text",
			"langpair", t.pair.String(),
			"error_type", string(errors.KindOf(err)),
			"error", err,
		)
		record(ctx, OutcomeFallback)
		return text
	}

	record(ctx, OutcomeTranslated)
	return translated
}

// TranslateAll translates each line in order. The result always has the
// same length as lines.
func (t *Translator) TranslateAll(ctx context.Context, lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = t.Translate(ctx, line)
	}
	return out
}

func record(ctx context.Context, outcome string) {
	metrics.TranslationRequestsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
