package bot

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed locales.json
var localesJSON []byte

type MenuStyle string

const (
	MenuStyleReply  MenuStyle = "reply"
	MenuStyleInline MenuStyle = "inline"
)

// Strings holds every user-visible text of one language.
type Strings struct {
	Greeting         string `json:"greeting"`
	MenuPrompt       string `json:"menu_prompt"`
	ButtonFindRecipe string `json:"button_find_recipe"`
	ButtonCancel     string `json:"button_cancel"`
	ButtonAbout      string `json:"button_about"`
	EnterDishName    string `json:"enter_dish_name"`
	Cancelled        string `json:"cancelled"`
	About            string `json:"about"`
	RecipePrefix     string `json:"recipe_prefix"`
	IngredientsLabel string `json:"ingredients_label"`
	NotFound         string `json:"not_found"`
	Error            string `json:"error"`
}

// Locale is a language plus the keyboard style the menu is shown with.
type Locale struct {
	Code      string
	MenuStyle MenuStyle
	Strings
}

// MenuButton is one entry of the main menu.
type MenuButton struct {
	ID    string
	Label string
}

// LoadLocale returns the embedded strings for code.
func LoadLocale(code string, style MenuStyle) (*Locale, error) {
	var all map[string]Strings
	if err := json.Unmarshal(localesJSON, &all); err != nil {
		return nil, fmt.Errorf("failed to parse locales: %w", err)
	}

	s, ok := all[code]
	if !ok {
		return nil, fmt.Errorf("unknown locale %q", code)
	}

	switch style {
	case MenuStyleReply, MenuStyleInline:
	default:
		return nil, fmt.Errorf("unknown menu style %q", style)
	}

	return &Locale{Code: code, MenuStyle: style, Strings: s}, nil
}

// MenuRows lays out the main menu: two actions on the first row, about below.
func (l *Locale) MenuRows() [][]MenuButton {
	return [][]MenuButton{
		{
			{ID: ButtonFindRecipe, Label: l.ButtonFindRecipe},
			{ID: ButtonCancel, Label: l.ButtonCancel},
		},
		{
			{ID: ButtonAbout, Label: l.ButtonAbout},
		},
	}
}

// ButtonForLabel maps a reply keyboard label back to its button ID, or ""
// if text is not a menu label. Reply keyboards send the label as plain text.
func (l *Locale) ButtonForLabel(text string) string {
	for _, row := range l.MenuRows() {
		for _, b := range row {
			if b.Label == text {
				return b.ID
			}
		}
	}
	return ""
}
