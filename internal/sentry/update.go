package sentry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/getsentry/sentry-go"
)

// WithUpdate returns a context carrying a hub scoped to one Telegram update.
func WithUpdate(ctx context.Context, updateID int, chatID int64, eventKind string) context.Context {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("update_id", strconv.Itoa(updateID))
	hub.Scope().SetTag("chat_id", strconv.FormatInt(chatID, 10))
	hub.Scope().SetTag("event_kind", eventKind)

	return sentry.SetHubOnContext(ctx, hub)
}

// CaptureError reports err through the hub on ctx, or the global hub.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hubFromContext(ctx).CaptureException(err)
}

// RecoverUpdate must be deferred directly. It stops a panic from taking down
// the update loop, logs it and reports it.
func RecoverUpdate(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}

	slog.ErrorContext(ctx, "Panic while handling update", "panic", fmt.Sprint(r))
	hubFromContext(ctx).RecoverWithContext(ctx, r)
}

func hubFromContext(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}
