package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/socialchef/recipebot/internal/sentry"
)

// BotAPI is the part of *tgbotapi.BotAPI the bot needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// TelegramSender implements Sender on top of the Bot API.
type TelegramSender struct {
	api BotAPI
}

func NewTelegramSender(api BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// Send implements Sender.
func (s *TelegramSender) Send(ctx context.Context, chatID int64, reply Reply) error {
	var msg tgbotapi.Chattable
	if reply.PhotoURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(reply.PhotoURL))
		photo.Caption = reply.Text
		msg = photo
	} else {
		text := tgbotapi.NewMessage(chatID, reply.Text)
		if markup := replyMarkup(reply); markup != nil {
			text.ReplyMarkup = markup
		}
		msg = text
	}

	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

func replyMarkup(reply Reply) interface{} {
	switch {
	case reply.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(false)
	case len(reply.Menu) == 0:
		return nil
	case reply.MenuStyle == MenuStyleInline:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Menu))
		for _, row := range reply.Menu {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.ID))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	default:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Menu))
		for _, row := range reply.Menu {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.OneTimeKeyboard = true
		keyboard.ResizeKeyboard = true
		return keyboard
	}
}

// EventFromUpdate extracts the chat and event from an update. ok is false for
// updates the bot does not react to (edits, stickers, channel posts).
func EventFromUpdate(update tgbotapi.Update) (chatID int64, event Event, ok bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			return 0, nil, false
		}
		return cb.Message.Chat.ID, EventButton{ID: cb.Data}, true

	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil {
			return 0, nil, false
		}
		if msg.IsCommand() {
			return msg.Chat.ID, EventCommand{Name: msg.Command()}, true
		}
		if msg.Text != "" {
			return msg.Chat.ID, EventText{Text: msg.Text}, true
		}
	}

	return 0, nil, false
}

// Bot feeds Telegram updates into a Dispatcher. Updates of one chat are
// handled in arrival order by a single worker; chats run concurrently.
type Bot struct {
	api        BotAPI
	dispatcher *Dispatcher
	wg         sync.WaitGroup

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
}

func New(api BotAPI, dispatcher *Dispatcher) *Bot {
	return &Bot{
		api:        api,
		dispatcher: dispatcher,
		queues:     make(map[int64][]tgbotapi.Update),
	}
}

// Run handles updates until ctx is cancelled or the channel is closed, and
// waits for queued updates before returning.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.wg.Wait()

	// In-flight lookups finish on shutdown; every outbound call has its own timeout.
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.enqueue(handlerCtx, update)
		}
	}
}

// enqueue appends update to its chat's queue and starts a worker for the
// chat if none is running. A chat has a map entry exactly while its worker runs.
func (b *Bot) enqueue(ctx context.Context, update tgbotapi.Update) {
	chatID, _, ok := EventFromUpdate(update)
	if !ok {
		return
	}

	b.mu.Lock()
	queue, active := b.queues[chatID]
	b.queues[chatID] = append(queue, update)
	b.mu.Unlock()

	if !active {
		b.wg.Add(1)
		go b.drain(ctx, chatID)
	}
}

func (b *Bot) drain(ctx context.Context, chatID int64) {
	defer b.wg.Done()

	for {
		b.mu.Lock()
		queue := b.queues[chatID]
		if len(queue) == 0 {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		update := queue[0]
		queue[0] = tgbotapi.Update{}
		b.queues[chatID] = queue[1:]
		b.mu.Unlock()

		b.HandleUpdate(ctx, update)
	}
}

// HandleUpdate processes a single update. Panics are recovered and reported.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID, event, ok := EventFromUpdate(update)
	if !ok {
		return
	}

	ctx = sentry.WithUpdate(ctx, update.UpdateID, chatID, event.Kind())
	defer sentry.RecoverUpdate(ctx)

	if update.CallbackQuery != nil {
		// Stops the client's loading indicator on the pressed button.
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			slog.WarnContext(ctx, "Failed to answer callback query", "chat_id", chatID, "error", err)
		}
	}

	if err := b.dispatcher.Handle(ctx, chatID, event); err != nil {
		slog.ErrorContext(ctx, "Failed to handle update",
			"update_id", update.UpdateID,
			"chat_id", chatID,
			"event_kind", event.Kind(),
			"error", err,
		)
		sentry.CaptureError(ctx, err)
	}
}

// SetWebhook registers url with Telegram. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func SetWebhook(api BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to getUpdates; Telegram refuses long
// polling while a webhook is set.
func DeleteWebhook(api BotAPI) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
