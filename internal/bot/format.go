package bot

import (
	"strings"
	"unicode/utf8"

	"github.com/socialchef/recipebot/internal/services/recipe"
)

// Telegram limits, counted in characters.
const (
	CaptionLimit = 1024
	MessageLimit = 4096
)

const ellipsis = "…"

// FormatRecipe renders a recipe as
//
//	Recipe: <name>
//	<url>
//
//	Ingredients:
//	- <line>
//
// ingredients replaces r.Ingredients so translated lines can be passed in.
// When the text exceeds limit, it ends after the last ingredient line that
// fits, followed by an ellipsis line.
func FormatRecipe(l *Locale, r *recipe.Recipe, ingredients []string, limit int) string {
	var b strings.Builder
	b.WriteString(l.RecipePrefix)
	b.WriteString(r.Name)
	b.WriteString("\n")
	b.WriteString(r.URL)
	b.WriteString("\n\n")
	b.WriteString(l.IngredientsLabel)
	b.WriteString(":")

	header := b.String()
	if utf8.RuneCountInString(header) > limit {
		return truncateRunes(header, limit-1) + ellipsis
	}

	// Reserve room for "\n…" so a cut caption still fits.
	budget := limit - utf8.RuneCountInString("\n"+ellipsis)
	used := utf8.RuneCountInString(header)
	total := used
	for _, line := range ingredients {
		total += utf8.RuneCountInString("\n- " + line)
	}
	if total <= limit {
		for _, line := range ingredients {
			b.WriteString("\n- ")
			b.WriteString(line)
		}
		return b.String()
	}

	for _, line := range ingredients {
		entry := "\n- " + line
		n := utf8.RuneCountInString(entry)
		if used+n > budget {
			break
		}
		b.WriteString(entry)
		used += n
	}
	if used+utf8.RuneCountInString("\n"+ellipsis) <= limit {
		b.WriteString("\n" + ellipsis)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
