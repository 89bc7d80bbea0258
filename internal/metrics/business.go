package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("recipebot/business")

	// Conversation metrics
	BotEventsTotal metric.Int64Counter

	// Recipe metrics
	RecipeLookupsTotal   metric.Int64Counter
	RecipeLookupDuration metric.Float64Histogram

	// Translation metrics
	TranslationRequestsTotal metric.Int64Counter

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram
)

func init() {
	// No-op instruments until Init runs, so packages can record metrics in tests.
	m := noop.NewMeterProvider().Meter("recipebot/business")
	BotEventsTotal, _ = m.Int64Counter("bot.events.total")
	RecipeLookupsTotal, _ = m.Int64Counter("recipe.lookups.total")
	RecipeLookupDuration, _ = m.Float64Histogram("recipe.lookup.duration")
	TranslationRequestsTotal, _ = m.Int64Counter("translation.requests.total")
	ExternalAPICallsTotal, _ = m.Int64Counter("external.api.calls.total")
	ExternalAPIDuration, _ = m.Float64Histogram("external.api.duration")
}

func Init() error {
	var err error

	// Conversation metrics
	BotEventsTotal, err = meter.Int64Counter(
		"bot.events.total",
		metric.WithDescription("Total number of chat events handled by the dispatcher"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	// Recipe metrics
	RecipeLookupsTotal, err = meter.Int64Counter(
		"recipe.lookups.total",
		metric.WithDescription("Total number of recipe lookups by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecipeLookupDuration, err = meter.Float64Histogram(
		"recipe.lookup.duration",
		metric.WithDescription("Duration of a full lookup including translation and reply"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	// Translation metrics
	TranslationRequestsTotal, err = meter.Int64Counter(
		"translation.requests.total",
		metric.WithDescription("Total number of ingredient translations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	// External API metrics
	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	return nil
}
