// Package integration holds end-to-end tests that run the bot against fake
// Telegram, recipe and translation APIs served by httptest.
package integration
