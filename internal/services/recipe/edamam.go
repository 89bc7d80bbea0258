package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/httpclient"
	"github.com/socialchef/recipebot/internal/metrics"
)

const maxResponseBytes = 4 << 20

// EdamamProvider implements Provider for the Edamam recipe search API
type EdamamProvider struct {
	appID      string
	appKey     string
	baseURL    string
	httpClient *http.Client
}

type searchResponse struct {
	Hits *[]struct {
		Recipe struct {
			Label           string   `json:"label"`
			URL             string   `json:"url"`
			Image           string   `json:"image"`
			IngredientLines []string `json:"ingredientLines"`
		} `json:"recipe"`
	} `json:"hits"`
}

// NewEdamamProvider creates a new Edamam recipe provider
func NewEdamamProvider(appID, appKey, baseURL string) *EdamamProvider {
	return &EdamamProvider{
		appID:      appID,
		appKey:     appKey,
		baseURL:    baseURL,
		httpClient: httpclient.NewInstrumentedClient(httpclient.APITimeout),
	}
}

// Lookup searches Edamam and returns the first hit as-is.
func (p *EdamamProvider) Lookup(ctx context.Context, dishName string) (*Recipe, error) {
	dishName = strings.TrimSpace(dishName)
	if dishName == "" {
		return nil, errors.NewValidationError("dish name is empty", "EMPTY_DISH_NAME", "Send the name of a dish, e.g. \"pasta\".")
	}

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", string(ProviderEdamam))}
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	reqURL, err := p.searchURL(dishName)
	if err != nil {
		return nil, errors.NewNetworkError("invalid recipe API URL", "RECIPE_BAD_URL", err)
	}

	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Edamam"), http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewNetworkError("failed to build recipe API request", "RECIPE_BAD_URL", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewNetworkError("recipe API request failed", "RECIPE_NETWORK_ERROR", redactURL(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.NewNetworkError("failed to read recipe API response", "RECIPE_NETWORK_ERROR", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewHTTPError("Edamam API error", "RECIPE_HTTP_ERROR", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, errors.NewMalformedResponseError("failed to decode recipe API response", "RECIPE_MALFORMED_RESPONSE", err)
	}
	if searchResp.Hits == nil {
		return nil, errors.NewMalformedResponseError("recipe API response has no hits field", "RECIPE_MALFORMED_RESPONSE", nil)
	}

	hits := *searchResp.Hits
	if len(hits) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no recipe found for %q", dishName), "RECIPE_NOT_FOUND", "Try a more general dish name.")
	}

	first := hits[0].Recipe
	if first.Label == "" {
		return nil, errors.NewMalformedResponseError("first hit has no label", "RECIPE_MALFORMED_RESPONSE", nil)
	}

	return &Recipe{
		Name:        first.Label,
		URL:         first.URL,
		ImageURL:    first.Image,
		Ingredients: first.IngredientLines,
	}, nil
}

func (p *EdamamProvider) searchURL(dishName string) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("q", dishName)
	q.Set("app_id", p.appID)
	q.Set("app_key", p.appKey)
	// Recipe Search v2 rejects requests without a type.
	if strings.Contains(u.Path, "/api/recipes/v2") && q.Get("type") == "" {
		q.Set("type", "public")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// redactURL strips the query string, which carries the app key, from
// transport errors before they are logged.
func redactURL(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
		}
	}
	return err
}
