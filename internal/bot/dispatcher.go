package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/logger"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/sentry"
	"github.com/socialchef/recipebot/internal/services/recipe"
	"github.com/socialchef/recipebot/internal/services/translation"
	"github.com/socialchef/recipebot/internal/telemetry"
	"github.com/socialchef/recipebot/internal/validation"
)

// Reply is one outgoing message. With PhotoURL set it is a photo and Text is
// its caption.
type Reply struct {
	Text           string
	PhotoURL       string
	Menu           [][]MenuButton
	MenuStyle      MenuStyle
	RemoveKeyboard bool
}

// Sender delivers replies to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, reply Reply) error
}

type session struct {
	mu    sync.Mutex
	state State
	refs  int
}

// Dispatcher runs the conversation of every chat. Events of one chat are
// handled one at a time; different chats do not block each other.
type Dispatcher struct {
	locale     *Locale
	recipes    recipe.Provider
	translator *translation.Translator
	sender     Sender

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewDispatcher creates a dispatcher. translator may be nil, in which case
// ingredient lines are sent as the recipe API returned them.
func NewDispatcher(locale *Locale, recipes recipe.Provider, translator *translation.Translator, sender Sender) *Dispatcher {
	return &Dispatcher{
		locale:     locale,
		recipes:    recipes,
		translator: translator,
		sender:     sender,
		sessions:   make(map[int64]*session),
	}
}

func (d *Dispatcher) acquire(chatID int64) *session {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[chatID]
	if !ok {
		s = &session{state: StateIdle}
		d.sessions[chatID] = s
	}
	s.refs++
	return s
}

// release drops an idle session once nobody holds it; a missing session is idle.
func (d *Dispatcher) release(chatID int64, s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s.refs--
	if s.refs == 0 && s.state == StateIdle {
		delete(d.sessions, chatID)
	}
}

// State returns the current state of a chat. Unknown chats are idle.
func (d *Dispatcher) State(chatID int64) State {
	d.mu.Lock()
	s, ok := d.sessions[chatID]
	d.mu.Unlock()
	if !ok {
		return StateIdle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle applies one event to a chat and sends the resulting reply. The state
// moves on even if sending fails.
func (d *Dispatcher) Handle(ctx context.Context, chatID int64, event Event) error {
	s := d.acquire(chatID)
	defer d.release(chatID, s)
	s.mu.Lock()
	defer s.mu.Unlock()

	action, next := Transition(s.state, event, d.locale)

	metrics.BotEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", event.Kind()),
		attribute.String("action", action.Kind.String()),
	))
	slog.DebugContext(ctx, "Handling event",
		"chat_id", chatID,
		"event_kind", event.Kind(),
		"state", s.state.String(),
		"action", action.Kind.String(),
		"next_state", next.String(),
	)

	s.state = next
	return d.perform(ctx, chatID, action)
}

func (d *Dispatcher) perform(ctx context.Context, chatID int64, action Action) error {
	switch action.Kind {
	case ActionGreet:
		return d.sender.Send(ctx, chatID, Reply{Text: d.locale.Greeting})
	case ActionShowMenu:
		return d.sender.Send(ctx, chatID, Reply{
			Text:      d.locale.MenuPrompt,
			Menu:      d.locale.MenuRows(),
			MenuStyle: d.locale.MenuStyle,
		})
	case ActionPromptDishName:
		return d.sender.Send(ctx, chatID, Reply{
			Text:           d.locale.EnterDishName,
			RemoveKeyboard: d.locale.MenuStyle == MenuStyleReply,
		})
	case ActionCancelled:
		return d.sender.Send(ctx, chatID, Reply{Text: d.locale.Cancelled})
	case ActionAbout:
		return d.sender.Send(ctx, chatID, Reply{Text: d.locale.About})
	case ActionLookup:
		return d.lookup(ctx, chatID, action.DishName)
	default:
		return nil
	}
}

func (d *Dispatcher) lookup(ctx context.Context, chatID int64, input string) (err error) {
	interactionID := uuid.New().String()
	startTime := time.Now()

	ctx, span := telemetry.Tracer("recipebot/bot").Start(ctx, "bot.lookup",
		trace.WithAttributes(
			attribute.String("interaction_id", interactionID),
			attribute.Int64("chat_id", chatID),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	log := slog.With("interaction_id", interactionID, "chat_id", chatID, logger.WithTraceContext(ctx))

	outcome := recipe.OutcomeFound
	defer func() {
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		metrics.RecipeLookupsTotal.Add(ctx, 1, attrs)
		metrics.RecipeLookupDuration.Record(ctx, time.Since(startTime).Seconds(), attrs)
	}()

	dishName, lookupErr := validation.NormalizeDishName(input)
	var result *recipe.Recipe
	if lookupErr == nil {
		span.SetAttributes(attribute.String("dish_name", dishName))
		result, lookupErr = d.recipes.Lookup(ctx, dishName)
	}

	if lookupErr != nil {
		outcome = recipe.ClassifyError(lookupErr)
		span.SetAttributes(attribute.String("outcome", outcome))
		if recipe.IsNotFound(lookupErr) {
			log.Info("No recipe found", "dish_name", dishName)
			return d.sender.Send(ctx, chatID, Reply{Text: d.locale.NotFound})
		}

		span.RecordError(lookupErr)
		log.Error("Recipe lookup failed",
			"dish_name", dishName,
			"error_type", string(errors.KindOf(lookupErr)),
			"error", lookupErr,
		)
		if errors.KindOf(lookupErr) != errors.ErrorTypeValidation {
			sentry.CaptureError(ctx, lookupErr)
		}
		return d.sender.Send(ctx, chatID, Reply{Text: d.locale.Error})
	}

	ingredients := result.Ingredients
	if d.translator != nil {
		ingredients = d.translator.TranslateAll(ctx, ingredients)
	}

	log.Info("Recipe found",
		"dish_name", dishName,
		"recipe", result.Name,
		"ingredients", len(ingredients),
	)

	if result.ImageURL != "" {
		caption := FormatRecipe(d.locale, result, ingredients, CaptionLimit)
		sendErr := d.sender.Send(ctx, chatID, Reply{Text: caption, PhotoURL: result.ImageURL})
		if sendErr == nil {
			return nil
		}
		log.Warn("Failed to send recipe photo, falling back to text", "error", sendErr)
	}

	return d.sender.Send(ctx, chatID, Reply{Text: FormatRecipe(d.locale, result, ingredients, MessageLimit)})
}
