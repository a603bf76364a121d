package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/outravel/go-dealfinder/config"
	"github.com/outravel/go-dealfinder/models"
)

// Gateway method names. The single sync endpoint multiplexes operations on
// the method parameter.
const (
	methodProductQuery = "aliexpress.affiliate.product.query"
	methodLinkGenerate = "aliexpress.affiliate.link.generate"
)

// timestampLayout is the gateway's required ISO-8601 shape: no milliseconds,
// explicit offset.
const timestampLayout = "2006-01-02T15:04:05+00:00"

// Client talks to the catalog gateway with signed GET requests.
type Client struct {
	cfg     *config.Config
	http    *http.Client
	limiter *rate.Limiter
	Metrics *Metrics

	now func() time.Time
}

// NewClient builds a gateway client configured from cfg.
func NewClient(cfg *config.Config) *Client {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: limiter,
		Metrics: NewMetrics(),
		now:     time.Now,
	}
}

// WithTransport swaps the underlying HTTP transport. Used by tests.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// ProductQuery runs a keyword search against the catalog, sorted by recent
// sales volume descending. A response without products is a normal empty
// result, not an error.
func (c *Client) ProductQuery(ctx context.Context, keywords string) ([]models.CatalogItem, error) {
	params := map[string]string{
		"method":                methodProductQuery,
		"app_key":               c.cfg.AppKey,
		"keywords":              keywords,
		"page_no":               "1",
		"page_size":             fmt.Sprintf("%d", c.cfg.PageSize),
		"platform_product_type": "ALL",
		"ship_to_country":       c.cfg.ShipToCountry,
		"sort":                  "LAST_VOLUME_DESC",
		"target_currency":       c.cfg.TargetCurrency,
		"target_language":       c.cfg.TargetLanguage,
		"tracking_id":           c.cfg.TrackingID,
	}

	body, err := c.call(ctx, methodProductQuery, params)
	if err != nil {
		return nil, err
	}

	var envelope productQueryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode product query response: %w", err)
	}
	return envelope.Response.RespResult.Result.Products.Product, nil
}

// GenerateLink asks the gateway for a shareable promotion link for sourceURL.
// Callers fall back to the original URL on error or empty result.
func (c *Client) GenerateLink(ctx context.Context, sourceURL string) (string, error) {
	params := map[string]string{
		"method":              methodLinkGenerate,
		"app_key":             c.cfg.AppKey,
		"promotion_link_type": "0",
		"source_values":       sourceURL,
		"tracking_id":         c.cfg.TrackingID,
	}

	body, err := c.call(ctx, methodLinkGenerate, params)
	if err != nil {
		return "", err
	}

	var envelope linkGenerateEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("decode link generate response: %w", err)
	}
	links := envelope.Response.RespResult.Result.PromotionLinks.PromotionLink
	if len(links) == 0 || links[0].PromotionLink == "" {
		return "", fmt.Errorf("no promotion link in response")
	}
	return links[0].PromotionLink, nil
}

// call signs and issues one gateway request, retrying transient failures
// with capped exponential backoff.
func (c *Client) call(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	params["timestamp"] = c.now().UTC().Format(timestampLayout)
	params["sign_method"] = "hmac-sha256"
	params[signParam] = Sign(params, c.cfg.AppSecret)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	requestURL := c.cfg.APIBaseURL + "?" + values.Encode()

	var lastErr error
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		c.Metrics.IncRequest(method)
		start := time.Now()
		body, err := c.get(ctx, requestURL)
		c.Metrics.ObserveDuration(time.Since(start))
		if err == nil {
			return body, nil
		}

		lastErr = classifyError(err, statusOf(err))
		c.Metrics.IncError(errorTypeLabel(lastErr))
		if attempt >= c.cfg.MaxRetries || !retryable(lastErr) {
			return nil, lastErr
		}

		delay := c.backoff(attempt + 1)
		slog.Debug("retrying catalog request",
			slog.String("method", method),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr),
		)
		c.Metrics.IncRetries()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, httpStatusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if max := c.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

type httpStatusError struct {
	status int
}

func (e httpStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.status)
}

func statusOf(err error) int {
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status
	}
	return 0
}

type productQueryEnvelope struct {
	Response struct {
		RespResult struct {
			Result struct {
				Products struct {
					Product []models.CatalogItem `json:"product"`
				} `json:"products"`
			} `json:"result"`
		} `json:"resp_result"`
	} `json:"aliexpress_affiliate_product_query_response"`
}

type linkGenerateEnvelope struct {
	Response struct {
		RespResult struct {
			Result struct {
				PromotionLinks struct {
					PromotionLink []struct {
						PromotionLink string `json:"promotion_link"`
					} `json:"promotion_link"`
				} `json:"promotion_links"`
			} `json:"result"`
		} `json:"resp_result"`
	} `json:"aliexpress_affiliate_link_generate_response"`
}
