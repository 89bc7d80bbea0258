package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/recipebot/internal/services/recipe"
)

// fakeAPI records everything sent to Telegram.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	params   map[string]tgbotapi.Params
	sendErr  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.params == nil {
		f.params = make(map[string]tgbotapi.Params)
	}
	f.params[endpoint] = params
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func commandUpdate(id int, chat int64, command string) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: chat},
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		},
	}
}

func textUpdate(id int, chat int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message:  &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chat}, Text: text},
	}
}

func callbackUpdate(id int, chat int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			Data:    data,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chat}},
		},
	}
}

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		chat   int64
		event  Event
		ok     bool
	}{
		{"command", commandUpdate(1, 5, "start"), 5, EventCommand{Name: "start"}, true},
		{"command with mention", commandUpdate(1, 5, "main@recipe_bot"), 5, EventCommand{Name: "main"}, true},
		{"text", textUpdate(1, 6, "pasta"), 6, EventText{Text: "pasta"}, true},
		{"callback", callbackUpdate(1, 7, ButtonAbout), 7, EventButton{ID: ButtonAbout}, true},
		{"sticker", tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 8}}}, 0, nil, false},
		{"callback without message", tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{Data: "x"}}, 0, nil, false},
		{"edited message", tgbotapi.Update{EditedMessage: &tgbotapi.Message{Text: "x"}}, 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat, event, ok := EventFromUpdate(tt.update)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.chat, chat)
			assert.Equal(t, tt.event, event)
		})
	}
}

func TestTelegramSender_ReplyKeyboard(t *testing.T) {
	api := &fakeAPI{}
	en := mustLocale(t, "en", MenuStyleReply)

	err := NewTelegramSender(api).Send(context.Background(), 5, Reply{Text: en.MenuPrompt, Menu: en.MenuRows(), MenuStyle: MenuStyleReply})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(5), msg.ChatID)
	assert.Equal(t, "Select an action:", msg.Text)

	keyboard := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, keyboard.OneTimeKeyboard)
	require.Len(t, keyboard.Keyboard, 2)
	assert.Equal(t, "Find a recipe", keyboard.Keyboard[0][0].Text)
	assert.Equal(t, "Cancel", keyboard.Keyboard[0][1].Text)
	assert.Equal(t, "About this bot", keyboard.Keyboard[1][0].Text)
}

func TestTelegramSender_InlineKeyboard(t *testing.T) {
	api := &fakeAPI{}
	ru := mustLocale(t, "ru", MenuStyleInline)

	err := NewTelegramSender(api).Send(context.Background(), 5, Reply{Text: ru.MenuPrompt, Menu: ru.MenuRows(), MenuStyle: MenuStyleInline})
	require.NoError(t, err)

	msg := api.sent[0].(tgbotapi.MessageConfig)
	keyboard := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Equal(t, "Найти рецепт", keyboard.InlineKeyboard[0][0].Text)
	require.NotNil(t, keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, ButtonFindRecipe, *keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestTelegramSender_PhotoAndRemoveKeyboard(t *testing.T) {
	api := &fakeAPI{}
	sender := NewTelegramSender(api)

	require.NoError(t, sender.Send(context.Background(), 5, Reply{Text: "caption", PhotoURL: "http://y.jpg"}))
	require.NoError(t, sender.Send(context.Background(), 5, Reply{Text: "Enter", RemoveKeyboard: true}))

	photo := api.sent[0].(tgbotapi.PhotoConfig)
	assert.Equal(t, "caption", photo.Caption)
	assert.Equal(t, tgbotapi.FileURL("http://y.jpg"), photo.File)

	msg := api.sent[1].(tgbotapi.MessageConfig)
	assert.IsType(t, tgbotapi.ReplyKeyboardRemove{}, msg.ReplyMarkup)
}

func TestTelegramSender_WrapsError(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("Bad Request: chat not found")}

	err := NewTelegramSender(api).Send(context.Background(), 5, Reply{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 5")
}

func TestBot_HandleUpdateAnswersCallback(t *testing.T) {
	api := &fakeAPI{}
	en := mustLocale(t, "en", MenuStyleInline)
	b := New(api, NewDispatcher(en, new(MockRecipeProvider), nil, NewTelegramSender(api)))

	b.HandleUpdate(context.Background(), callbackUpdate(3, 9, ButtonAbout))

	require.Len(t, api.requests, 1)
	assert.IsType(t, tgbotapi.CallbackConfig{}, api.requests[0])
	require.Len(t, api.sent, 1)
	assert.Equal(t, "This bot was created by Muminov Sardor.", api.sent[0].(tgbotapi.MessageConfig).Text)
}

// panickingProvider simulates a bug deep inside update handling.
type panickingProvider struct{}

func (panickingProvider) Lookup(ctx context.Context, dishName string) (*recipe.Recipe, error) {
	panic("nil map write")
}

func TestBot_HandleUpdateRecoversPanic(t *testing.T) {
	api := &fakeAPI{}
	en := mustLocale(t, "en", MenuStyleReply)
	d := NewDispatcher(en, panickingProvider{}, nil, NewTelegramSender(api))
	b := New(api, d)

	ctx := context.Background()
	b.HandleUpdate(ctx, textUpdate(1, 9, "Find a recipe"))
	assert.NotPanics(t, func() {
		b.HandleUpdate(ctx, textUpdate(2, 9, "pasta"))
	})

	// The session lock was released by the unwinding panic.
	b.HandleUpdate(ctx, commandUpdate(3, 9, "start"))
	assert.Equal(t, 2, api.sentCount())
}

func TestBot_RunHandlesUntilChannelCloses(t *testing.T) {
	api := &fakeAPI{}
	en := mustLocale(t, "en", MenuStyleReply)
	b := New(api, NewDispatcher(en, new(MockRecipeProvider), nil, NewTelegramSender(api)))

	updates := make(chan tgbotapi.Update, 3)
	updates <- commandUpdate(1, 1, "start")
	updates <- commandUpdate(2, 2, "start")
	updates <- commandUpdate(3, 3, "main")
	close(updates)

	require.NoError(t, b.Run(context.Background(), updates))
	assert.Equal(t, 3, api.sentCount())
}

// countingProvider returns pasta and counts lookups.
type countingProvider struct {
	lookups atomic.Int64
}

func (p *countingProvider) Lookup(ctx context.Context, dishName string) (*recipe.Recipe, error) {
	p.lookups.Add(1)
	return pasta, nil
}

func TestBot_RunKeepsChatOrder(t *testing.T) {
	const chats = 500

	api := &fakeAPI{}
	en := mustLocale(t, "en", MenuStyleInline)
	provider := &countingProvider{}
	d := NewDispatcher(en, provider, nil, NewTelegramSender(api))
	b := New(api, d)

	updates := make(chan tgbotapi.Update, 2*chats)
	for chat := int64(1); chat <= chats; chat++ {
		updates <- callbackUpdate(int(2*chat), chat, ButtonFindRecipe)
		updates <- textUpdate(int(2*chat+1), chat, "pasta")
	}
	close(updates)

	require.NoError(t, b.Run(context.Background(), updates))

	assert.Equal(t, int64(chats), provider.lookups.Load())
	for chat := int64(1); chat <= chats; chat++ {
		assert.Equal(t, StateIdle, d.State(chat), "chat %d", chat)
	}
	// prompt and recipe per chat
	assert.Equal(t, 2*chats, api.sentCount())
	assert.Empty(t, b.queues)
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	api := &fakeAPI{}
	en := mustLocale(t, "en", MenuStyleReply)
	b := New(api, NewDispatcher(en, new(MockRecipeProvider), nil, NewTelegramSender(api)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- b.Run(ctx, make(chan tgbotapi.Update)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSetWebhook(t *testing.T) {
	api := &fakeAPI{}

	require.NoError(t, SetWebhook(api, "https://bot.example.com/telegram/webhook", "s3cret"))
	assert.Equal(t, "https://bot.example.com/telegram/webhook", api.params["setWebhook"]["url"])
	assert.Equal(t, "s3cret", api.params["setWebhook"]["secret_token"])

	require.NoError(t, DeleteWebhook(api))
	assert.IsType(t, tgbotapi.DeleteWebhookConfig{}, api.requests[0])
}
