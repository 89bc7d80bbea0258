package validation

import (
	"strings"
	"unicode"

	"github.com/socialchef/recipebot/internal/errors"
)

// MaxDishNameRunes caps what is sent to the recipe API as q.
const MaxDishNameRunes = 100

// NormalizeDishName prepares free text from a chat as a search query.
// Control characters are dropped, runs of whitespace become one space and the
// result is cut to MaxDishNameRunes. An input that is empty afterwards is a
// validation error.
func NormalizeDishName(input string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)

	name := strings.Join(strings.Fields(cleaned), " ")
	if name == "" {
		return "", errors.NewValidationError("dish name is empty", "EMPTY_DISH_NAME", "Send the name of a dish, e.g. \"pasta\".")
	}

	if runes := []rune(name); len(runes) > MaxDishNameRunes {
		name = strings.TrimSpace(string(runes[:MaxDishNameRunes]))
	}

	return name, nil
}
