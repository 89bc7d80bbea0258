package recipe

import "context"

// ProviderType represents the recipe search backend
type ProviderType string

const (
	ProviderEdamam ProviderType = "edamam"
)

// Recipe is the first search hit for a dish name.
type Recipe struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	Ingredients []string `json:"ingredients"`
}

// Provider looks up a recipe by free-text dish name.
//
// Errors are *errors.AppError values: VALIDATION_ERROR for an empty dish
// name, NOT_FOUND_ERROR when the search has no hits (matches ErrNotFound),
// and NETWORK_ERROR, HTTP_ERROR or MALFORMED_RESPONSE for upstream failures.
type Provider interface {
	Lookup(ctx context.Context, dishName string) (*Recipe, error)
}
