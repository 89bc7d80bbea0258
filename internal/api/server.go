package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/socialchef/recipebot/internal/middleware"
)

const maxUpdateBytes = 1 << 20

// Server exposes the health check and, in webhook mode, the endpoint Telegram
// delivers updates to.
type Server struct {
	updates chan tgbotapi.Update
	secret  string
	webhook bool
}

// NewServer creates a server. With webhook set, accepted updates are queued on
// a channel of size buffer, read through Updates.
func NewServer(webhook bool, secret string, buffer int) *Server {
	return &Server{
		updates: make(chan tgbotapi.Update, buffer),
		secret:  secret,
		webhook: webhook,
	}
}

// Updates returns the channel webhook updates are delivered on.
func (s *Server) Updates() <-chan tgbotapi.Update {
	return s.updates
}

// Routes mounts the handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HandleHealth)

	if s.webhook {
		r.Group(func(r chi.Router) {
			r.Use(middleware.WebhookSecret(s.secret))
			r.Post("/telegram/webhook", s.HandleWebhook)
		})
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleWebhook queues one update. Telegram retries deliveries that do not get
// a 2xx, so the handler answers as soon as the update is queued.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		http.Error(w, "Invalid update body", http.StatusBadRequest)
		return
	}

	select {
	case s.updates <- update:
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		slog.Warn("Dropped webhook update", "update_id", update.UpdateID, "error", r.Context().Err())
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
	}
}

// ListenAndServe runs srv until ctx is cancelled, then gives in-flight
// requests up to timeout to finish.
func ListenAndServe(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
