package translation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/httpclient"
	"github.com/socialchef/recipebot/internal/metrics"
)

// maxQueryBytes is the largest q the free MyMemory endpoint accepts.
const maxQueryBytes = 500

// MyMemoryProvider implements Provider for the MyMemory translation API
type MyMemoryProvider struct {
	baseURL    string
	email      string
	httpClient *http.Client
}

// responseStatus can unmarshal from JSON string or number; MyMemory uses both.
type responseStatus int

func (s *responseStatus) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = 0
		return nil
	}
	// Try unmarshal as string first
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return err
		}
		*s = responseStatus(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = responseStatus(n)
	return nil
}

type myMemoryResponse struct {
	ResponseData *struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  responseStatus `json:"responseStatus"`
	ResponseDetails string         `json:"responseDetails"`
}

// NewMyMemoryProvider creates a new MyMemory translation provider. email is
// optional and raises the daily quota when set.
func NewMyMemoryProvider(baseURL, email string) *MyMemoryProvider {
	return &MyMemoryProvider{
		baseURL:    baseURL,
		email:      email,
		httpClient: httpclient.NewInstrumentedClient(httpclient.APITimeout),
	}
}

// Translate translates text using MyMemory's GET endpoint
func (p *MyMemoryProvider) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	if len(text) > maxQueryBytes {
		return "", errors.NewValidationError("text too long for translation", "TRANSLATION_TEXT_TOO_LONG", "")
	}

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", string(ProviderMyMemory))}
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", errors.NewNetworkError("invalid translation API URL", "TRANSLATION_BAD_URL", err)
	}
	q := u.Query()
	q.Set("langpair", pair.String())
	q.Set("q", text)
	if p.email != "" {
		q.Set("de", p.email)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "MyMemory"), http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.NewNetworkError("failed to build translation request", "TRANSLATION_BAD_URL", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.NewNetworkError("translation request failed", "TRANSLATION_NETWORK_ERROR", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.NewNetworkError("failed to read translation response", "TRANSLATION_NETWORK_ERROR", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewHTTPError("MyMemory API error", "TRANSLATION_HTTP_ERROR", resp.StatusCode)
	}

	var result myMemoryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.NewMalformedResponseError("failed to decode translation response", "TRANSLATION_MALFORMED_RESPONSE", err)
	}

	// Quota and input errors arrive with HTTP 200 and the reason in responseDetails.
	if result.ResponseStatus != 0 && result.ResponseStatus != http.StatusOK {
		appErr := errors.NewHTTPError("MyMemory rejected the request", "TRANSLATION_REJECTED", int(result.ResponseStatus))
		appErr.Recovery = result.ResponseDetails
		return "", appErr
	}
	if result.ResponseData == nil || strings.TrimSpace(result.ResponseData.TranslatedText) == "" {
		return "", errors.NewMalformedResponseError("translation response has no translatedText", "TRANSLATION_MALFORMED_RESPONSE", nil)
	}

	return result.ResponseData.TranslatedText, nil
}
