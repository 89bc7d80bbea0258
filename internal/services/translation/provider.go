package translation

import (
	"context"
)

type ProviderType string

const (
	ProviderMyMemory ProviderType = "mymemory"
)

// LangPair is a source/target language pair such as en→ru.
type LangPair struct {
	Source string
	Target string
}

// String returns the pair in "src|tgt" form.
func (p LangPair) String() string {
	return p.Source + "|" + p.Target
}

// Provider translates text between the languages of a pair.
type Provider interface {
	Translate(ctx context.Context, text string, pair LangPair) (string, error)
}
