package bot

// State is the per-chat conversation state.
type State int

const (
	StateIdle State = iota
	StateAwaitingDishName
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDishName:
		return "awaiting_dish_name"
	default:
		return "unknown"
	}
}

// Button IDs carried in inline keyboard callback data.
const (
	ButtonFindRecipe = "find_recipe"
	ButtonCancel     = "cancel"
	ButtonAbout      = "about"
)

// Event is something a user did in a chat.
type Event interface {
	Kind() string
}

// EventCommand is a slash command, without the slash or bot mention.
type EventCommand struct {
	Name string
}

// EventButton is an inline keyboard press.
type EventButton struct {
	ID string
}

// EventText is any non-command text message.
type EventText struct {
	Text string
}

func (EventCommand) Kind() string { return "command" }
func (EventButton) Kind() string  { return "button" }
func (EventText) Kind() string    { return "text" }

// ActionKind says what reply an event produces.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionGreet
	ActionShowMenu
	ActionPromptDishName
	ActionCancelled
	ActionAbout
	ActionLookup
)

func (k ActionKind) String() string {
	switch k {
	case ActionGreet:
		return "greet"
	case ActionShowMenu:
		return "show_menu"
	case ActionPromptDishName:
		return "prompt_dish_name"
	case ActionCancelled:
		return "cancelled"
	case ActionAbout:
		return "about"
	case ActionLookup:
		return "lookup"
	default:
		return "none"
	}
}

type Action struct {
	Kind     ActionKind
	DishName string
}

// Transition is the whole conversation as a pure function: given the current
// state and an event it returns the reply to perform and the next state.
func Transition(state State, event Event, locale *Locale) (Action, State) {
	switch ev := event.(type) {
	case EventCommand:
		switch ev.Name {
		case "start":
			return Action{Kind: ActionGreet}, state
		case "main":
			return Action{Kind: ActionShowMenu}, state
		case "cancel":
			return Action{Kind: ActionCancelled}, StateIdle
		}

	case EventButton:
		return buttonTransition(state, ev.ID)

	case EventText:
		id := locale.ButtonForLabel(ev.Text)
		if state == StateAwaitingDishName {
			// Only the cancel label escapes the prompt; other labels are dish names.
			if id == ButtonCancel {
				return buttonTransition(state, id)
			}
			return Action{Kind: ActionLookup, DishName: ev.Text}, StateIdle
		}
		if id != "" {
			return buttonTransition(state, id)
		}
	}

	return Action{Kind: ActionNone}, state
}

func buttonTransition(state State, id string) (Action, State) {
	switch id {
	case ButtonFindRecipe:
		return Action{Kind: ActionPromptDishName}, StateAwaitingDishName
	case ButtonCancel:
		return Action{Kind: ActionCancelled}, StateIdle
	case ButtonAbout:
		return Action{Kind: ActionAbout}, state
	}
	return Action{Kind: ActionNone}, state
}
