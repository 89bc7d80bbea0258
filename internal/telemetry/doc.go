// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing chat events and outbound API calls in the recipe bot.
//
// The package configures OTLP HTTP export for every signal; when no
// endpoint is configured the bot runs with the global no-op providers.
package telemetry
