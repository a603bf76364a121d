package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the Google Translate v2 REST endpoint.
const DefaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// GoogleClient calls the Google Translate v2 API.
type GoogleClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewGoogleClient builds a client authenticated with apiKey.
func NewGoogleClient(apiKey string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// WithEndpoint overrides the API endpoint. Used by tests.
func (g *GoogleClient) WithEndpoint(endpoint string) {
	g.endpoint = endpoint
}

// WithTransport swaps the underlying HTTP transport. Used by tests.
func (g *GoogleClient) WithTransport(rt http.RoundTripper) {
	g.http.Transport = rt
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate implements Translator.
func (g *GoogleClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	values := url.Values{}
	values.Set("key", g.apiKey)
	values.Set("q", text)
	values.Set("target", targetLang)
	values.Set("format", "text")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var decoded googleResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Data.Translations) == 0 {
		return "", fmt.Errorf("no translation in response")
	}
	return html.UnescapeString(decoded.Data.Translations[0].TranslatedText), nil
}
