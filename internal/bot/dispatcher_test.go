package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/services/recipe"
	"github.com/socialchef/recipebot/internal/services/translation"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, chatID int64, reply Reply) error {
	args := m.Called(ctx, chatID, reply)
	return args.Error(0)
}

type MockRecipeProvider struct {
	mock.Mock
}

func (m *MockRecipeProvider) Lookup(ctx context.Context, dishName string) (*recipe.Recipe, error) {
	args := m.Called(ctx, dishName)
	r, _ := args.Get(0).(*recipe.Recipe)
	return r, args.Error(1)
}

type MockTranslationProvider struct {
	mock.Mock
}

func (m *MockTranslationProvider) Translate(ctx context.Context, text string, pair translation.LangPair) (string, error) {
	args := m.Called(ctx, text, pair)
	return args.String(0), args.Error(1)
}

const chatID int64 = 1001

func newTestDispatcher(t *testing.T, locale *Locale, translator *translation.Translator) (*Dispatcher, *MockSender, *MockRecipeProvider) {
	t.Helper()
	sender := new(MockSender)
	recipes := new(MockRecipeProvider)
	return NewDispatcher(locale, recipes, translator, sender), sender, recipes
}

func textReply(text string) Reply {
	return Reply{Text: text}
}

func TestDispatcher_StartAndMenu(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, _ := newTestDispatcher(t, en, nil)

	sender.On("Send", mock.Anything, chatID, textReply(en.Greeting)).Return(nil).Once()
	sender.On("Send", mock.Anything, chatID, Reply{Text: "Select an action:", Menu: en.MenuRows(), MenuStyle: MenuStyleReply}).Return(nil).Once()

	require.NoError(t, d.Handle(context.Background(), chatID, EventCommand{Name: "start"}))
	require.NoError(t, d.Handle(context.Background(), chatID, EventCommand{Name: "main"}))

	assert.Equal(t, StateIdle, d.State(chatID))
	sender.AssertExpectations(t)
}

func TestDispatcher_PastaScenario(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)

	recipes.On("Lookup", mock.Anything, "pasta").Return(pasta, nil).Once()
	sender.On("Send", mock.Anything, chatID, Reply{Text: en.EnterDishName, RemoveKeyboard: true}).Return(nil).Once()

	var photo Reply
	sender.On("Send", mock.Anything, chatID, mock.MatchedBy(func(r Reply) bool { return r.PhotoURL != "" })).
		Run(func(args mock.Arguments) { photo = args.Get(2).(Reply) }).
		Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "Find a recipe"}))
	assert.Equal(t, StateAwaitingDishName, d.State(chatID))

	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: " pasta "}))
	assert.Equal(t, StateIdle, d.State(chatID))

	assert.Equal(t, "http://y.jpg", photo.PhotoURL)
	assert.Contains(t, photo.Text, "Pasta Carbonara")
	assert.Contains(t, photo.Text, "http://x")
	assert.Contains(t, photo.Text, "- 200g pasta\n- 2 eggs")

	sender.AssertExpectations(t)
	recipes.AssertExpectations(t)
}

func TestDispatcher_NotFoundScenario(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)

	notFound := apperrors.NewNotFoundError("no recipe found", "RECIPE_NOT_FOUND", "")
	recipes.On("Lookup", mock.Anything, "zzzznotfood").Return(nil, notFound).Once()
	sender.On("Send", mock.Anything, chatID, mock.Anything).Return(nil)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "zzzznotfood"}))

	sender.AssertCalled(t, "Send", mock.Anything, chatID, textReply("Unfortunately, no recipe could be found for this dish."))
	assertNoPhoto(t, sender)
	assert.Equal(t, StateIdle, d.State(chatID))
}

func TestDispatcher_LookupErrors(t *testing.T) {
	errs := map[string]error{
		"network":   apperrors.NewNetworkError("recipe API request failed", "RECIPE_NETWORK_ERROR", errors.New("timeout")),
		"http":      apperrors.NewHTTPError("Edamam API error", "RECIPE_HTTP_ERROR", http.StatusUnauthorized),
		"malformed": apperrors.NewMalformedResponseError("bad body", "RECIPE_MALFORMED_RESPONSE", nil),
		"untyped":   errors.New("something else"),
	}

	for name, lookupErr := range errs {
		t.Run(name, func(t *testing.T) {
			en := mustLocale(t, "en", MenuStyleReply)
			d, sender, recipes := newTestDispatcher(t, en, nil)

			recipes.On("Lookup", mock.Anything, "pasta").Return(nil, lookupErr).Once()
			sender.On("Send", mock.Anything, chatID, mock.Anything).Return(nil)

			ctx := context.Background()
			require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
			require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "pasta"}))

			sender.AssertCalled(t, "Send", mock.Anything, chatID, textReply("An error occurred while processing your request."))
			assertNoPhoto(t, sender)
			assert.Equal(t, StateIdle, d.State(chatID))
		})
	}
}

func TestDispatcher_BlankDishNameSkipsLookup(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)
	sender.On("Send", mock.Anything, chatID, mock.Anything).Return(nil)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "   "}))

	recipes.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	sender.AssertCalled(t, "Send", mock.Anything, chatID, textReply(en.Error))
	assert.Equal(t, StateIdle, d.State(chatID))
}

func TestDispatcher_TranslatesIngredients(t *testing.T) {
	ru := mustLocale(t, "ru", MenuStyleInline)
	pair := translation.LangPair{Source: "en", Target: "ru"}

	translations := new(MockTranslationProvider)
	translations.On("Translate", mock.Anything, "200g pasta", pair).Return("200 г пасты", nil)
	translations.On("Translate", mock.Anything, "2 eggs", pair).Return("", errors.New("quota exceeded"))

	d, sender, recipes := newTestDispatcher(t, ru, translation.NewTranslator(translations, pair))
	recipes.On("Lookup", mock.Anything, "паста").Return(pasta, nil).Once()

	var photo Reply
	sender.On("Send", mock.Anything, chatID, Reply{Text: ru.EnterDishName}).Return(nil).Once()
	sender.On("Send", mock.Anything, chatID, mock.MatchedBy(func(r Reply) bool { return r.PhotoURL != "" })).
		Run(func(args mock.Arguments) { photo = args.Get(2).(Reply) }).
		Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "паста"}))

	// A failed line falls back to the original text.
	assert.Contains(t, photo.Text, "- 200 г пасты\n- 2 eggs")
	assert.Contains(t, photo.Text, "Рецепт: Pasta Carbonara")
	sender.AssertExpectations(t)
}

func TestDispatcher_PhotoFailureFallsBackToText(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)
	recipes.On("Lookup", mock.Anything, "pasta").Return(pasta, nil).Once()

	caption := FormatRecipe(en, pasta, pasta.Ingredients, MessageLimit)
	sender.On("Send", mock.Anything, chatID, Reply{Text: en.EnterDishName, RemoveKeyboard: true}).Return(nil).Once()
	sender.On("Send", mock.Anything, chatID, Reply{Text: caption, PhotoURL: "http://y.jpg"}).Return(errors.New("wrong file identifier")).Once()
	sender.On("Send", mock.Anything, chatID, Reply{Text: caption}).Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "pasta"}))

	sender.AssertExpectations(t)
}

func TestDispatcher_NoImageSendsText(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)
	noImage := &recipe.Recipe{Name: "Pasta Carbonara", URL: "http://x", Ingredients: []string{"200g pasta"}}
	recipes.On("Lookup", mock.Anything, "pasta").Return(noImage, nil).Once()
	sender.On("Send", mock.Anything, chatID, mock.Anything).Return(nil)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "pasta"}))

	sender.AssertCalled(t, "Send", mock.Anything, chatID, textReply(FormatRecipe(en, noImage, noImage.Ingredients, MessageLimit)))
	assertNoPhoto(t, sender)
}

func TestDispatcher_SendErrorStillAdvancesState(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, _ := newTestDispatcher(t, en, nil)
	sender.On("Send", mock.Anything, chatID, mock.Anything).Return(errors.New("chat not found"))

	err := d.Handle(context.Background(), chatID, EventButton{ID: ButtonFindRecipe})
	require.Error(t, err)
	assert.Equal(t, StateAwaitingDishName, d.State(chatID))
}

func TestDispatcher_CancelLabelWhileAwaiting(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)
	sender.On("Send", mock.Anything, chatID, mock.Anything).Return(nil)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "Cancel"}))

	assert.Equal(t, StateIdle, d.State(chatID))
	recipes.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestDispatcher_IgnoredEventsSendNothing(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "pasta"}))
	require.NoError(t, d.Handle(ctx, chatID, EventCommand{Name: "help"}))
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: "menu:x"}))

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	recipes.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	assert.Equal(t, StateIdle, d.State(chatID))
}

func TestDispatcher_ChatsAreIndependent(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, _ := newTestDispatcher(t, en, nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, d.Handle(context.Background(), 1, EventButton{ID: ButtonFindRecipe}))

	assert.Equal(t, StateAwaitingDishName, d.State(1))
	assert.Equal(t, StateIdle, d.State(2))
}

func TestDispatcher_DropsIdleSessions(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	d, sender, recipes := newTestDispatcher(t, en, nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	recipes.On("Lookup", mock.Anything, "pasta").Return(pasta, nil)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventCommand{Name: "start"}))
	assert.Empty(t, d.sessions)

	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))
	assert.Len(t, d.sessions, 1)
	assert.Equal(t, StateAwaitingDishName, d.State(chatID))

	require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "pasta"}))
	assert.Empty(t, d.sessions)
	assert.Equal(t, StateIdle, d.State(chatID))
}

// blockingProvider holds a lookup open until release is closed.
type blockingProvider struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) Lookup(ctx context.Context, dishName string) (*recipe.Recipe, error) {
	close(p.started)
	<-p.release
	return pasta, nil
}

func TestDispatcher_SerializesEventsPerChat(t *testing.T) {
	en := mustLocale(t, "en", MenuStyleReply)
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(en, provider, nil, sender)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Handle(ctx, chatID, EventText{Text: "pasta"})
	}()
	<-provider.started

	// Another chat is not blocked by the pending lookup.
	otherDone := make(chan struct{})
	go func() {
		d.Handle(ctx, 2, EventCommand{Name: "start"})
		close(otherDone)
	}()
	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("event of another chat was blocked")
	}

	// The same chat waits for the lookup to finish.
	sameDone := make(chan struct{})
	go func() {
		d.Handle(ctx, chatID, EventButton{ID: ButtonFindRecipe})
		close(sameDone)
	}()
	select {
	case <-sameDone:
		t.Fatal("event of the same chat ran during a lookup")
	case <-time.After(50 * time.Millisecond):
	}

	close(provider.release)
	wg.Wait()
	<-sameDone
	assert.Equal(t, StateAwaitingDishName, d.State(chatID))
}

func TestDispatcher_AgainstFakeRecipeAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "zzzznotfood" {
			w.Write([]byte(`{"hits": []}`))
			return
		}
		w.Write([]byte(`{"hits":[{"recipe":{"label":"Pasta Carbonara","url":"http://x","image":"http://y.jpg","ingredientLines":["200g pasta","2 eggs"]}}]}`))
	}))
	defer server.Close()

	en := mustLocale(t, "en", MenuStyleReply)
	sender := new(MockSender)
	sender.On("Send", mock.Anything, chatID, mock.Anything).Return(nil)
	d := NewDispatcher(en, recipe.NewEdamamProvider("id", "key", server.URL+"/search"), nil, sender)

	ctx := context.Background()
	for _, dish := range []string{"pasta", "zzzznotfood"} {
		require.NoError(t, d.Handle(ctx, chatID, EventText{Text: "Find a recipe"}))
		require.NoError(t, d.Handle(ctx, chatID, EventText{Text: dish}))
	}

	sender.AssertCalled(t, "Send", mock.Anything, chatID, Reply{
		Text:     "Recipe: Pasta Carbonara\nhttp://x\n\nIngredients:\n- 200g pasta\n- 2 eggs",
		PhotoURL: "http://y.jpg",
	})
	sender.AssertCalled(t, "Send", mock.Anything, chatID, textReply(en.NotFound))
}

func assertNoPhoto(t *testing.T, sender *MockSender) {
	t.Helper()
	for _, call := range sender.Calls {
		if reply, ok := call.Arguments.Get(2).(Reply); ok {
			assert.Empty(t, reply.PhotoURL, "unexpected photo: %+v", reply)
		}
	}
}
