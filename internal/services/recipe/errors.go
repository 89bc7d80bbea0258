package recipe

import (
	"github.com/socialchef/recipebot/internal/errors"
)

// ErrNotFound matches, via errors.Is, every lookup that returned zero hits.
var ErrNotFound = errors.NewNotFoundError("no recipe found", "RECIPE_NOT_FOUND", "")

// Lookup outcomes used as metric and log labels.
const (
	OutcomeFound             = "found"
	OutcomeNotFound          = "not_found"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeNetworkError      = "network_error"
	OutcomeHTTPError         = "http_error"
	OutcomeMalformedResponse = "malformed_response"
	OutcomeError             = "error"
)

// ClassifyError maps a lookup error to its outcome label.
func ClassifyError(err error) string {
	if err == nil {
		return OutcomeFound
	}

	switch errors.KindOf(err) {
	case errors.ErrorTypeNotFound:
		return OutcomeNotFound
	case errors.ErrorTypeValidation:
		return OutcomeInvalidInput
	case errors.ErrorTypeNetwork:
		return OutcomeNetworkError
	case errors.ErrorTypeHTTP:
		return OutcomeHTTPError
	case errors.ErrorTypeMalformedResponse:
		return OutcomeMalformedResponse
	default:
		return OutcomeError
	}
}

// IsNotFound reports whether err means the search returned no hits.
func IsNotFound(err error) bool {
	return errors.KindOf(err) == errors.ErrorTypeNotFound
}
