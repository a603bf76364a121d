package catalog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/outravel/go-dealfinder/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = "https://gateway.test/sync"
	cfg.AppKey = "app-key"
	cfg.AppSecret = "app-secret"
	cfg.TrackingID = "tracker"
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	return cfg
}

const productQueryBody = `{
  "aliexpress_affiliate_product_query_response": {
    "resp_result": {
      "result": {
        "products": {
          "product": [
            {
              "product_title": "Folding Chair",
              "target_sale_price": "19.99",
              "target_original_price": "39.99",
              "discount": "50%",
              "evaluate_rate": "93.5%",
              "lastest_volume": 1200,
              "product_main_image_url": "https://img.test/1.jpg",
              "product_detail_url": "https://item.test/1"
            },
            {
              "product_title": "Camping Chair",
              "target_sale_price": "25.00",
              "sales_count": "10K+",
              "product_main_image_url": "https://img.test/2.jpg",
              "product_detail_url": "https://item.test/2",
              "promotion_link": "https://promo.test/2"
            }
          ]
        }
      }
    }
  }
}`

func TestProductQueryParsesEnvelope(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			if q.Get("method") != "aliexpress.affiliate.product.query" {
				t.Fatalf("unexpected method param %q", q.Get("method"))
			}
			if q.Get("keywords") != "folding chair" {
				t.Fatalf("unexpected keywords %q", q.Get("keywords"))
			}
			if q.Get("sort") != "LAST_VOLUME_DESC" {
				t.Fatalf("unexpected sort %q", q.Get("sort"))
			}

			// The sign parameter must match a recomputation over the
			// remaining parameters.
			params := map[string]string{}
			for key, values := range q {
				if key == "sign" {
					continue
				}
				params[key] = values[0]
			}
			if q.Get("sign") != Sign(params, cfg.AppSecret) {
				t.Fatalf("request signature does not verify")
			}

			return httpmock.NewStringResponse(http.StatusOK, productQueryBody), nil
		})
	client.WithTransport(transport)

	items, err := client.ProductQuery(context.Background(), "folding chair")
	if err != nil {
		t.Fatalf("product query: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Title != "Folding Chair" {
		t.Fatalf("title = %q", items[0].Title)
	}
	if string(items[0].LastestVolume) != "1200" {
		t.Fatalf("numeric lastest_volume = %q, want 1200", items[0].LastestVolume)
	}
	if string(items[1].SalesCount) != "10K+" {
		t.Fatalf("sales_count = %q, want 10K+", items[1].SalesCount)
	}
}

func TestProductQueryEmptyEnvelope(t *testing.T) {
	client := NewClient(testConfig())

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		httpmock.NewStringResponder(http.StatusOK, `{"aliexpress_affiliate_product_query_response":{"resp_result":{"result":{}}}}`))
	client.WithTransport(transport)

	items, err := client.ProductQuery(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}

func TestProductQueryMalformedJSON(t *testing.T) {
	client := NewClient(testConfig())

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		httpmock.NewStringResponder(http.StatusOK, `{not json`))
	client.WithTransport(transport)

	if _, err := client.ProductQuery(context.Background(), "x"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestGenerateLink(t *testing.T) {
	client := NewClient(testConfig())

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			if q.Get("method") != "aliexpress.affiliate.link.generate" {
				t.Fatalf("unexpected method %q", q.Get("method"))
			}
			if q.Get("source_values") != "https://item.test/1" {
				t.Fatalf("unexpected source_values %q", q.Get("source_values"))
			}
			return httpmock.NewStringResponse(http.StatusOK, `{
              "aliexpress_affiliate_link_generate_response": {
                "resp_result": {"result": {"promotion_links": {"promotion_link": [
                  {"promotion_link": "https://s.click.test/abc"}
                ]}}}
              }
            }`), nil
		})
	client.WithTransport(transport)

	link, err := client.GenerateLink(context.Background(), "https://item.test/1")
	if err != nil {
		t.Fatalf("generate link: %v", err)
	}
	if link != "https://s.click.test/abc" {
		t.Fatalf("link = %q", link)
	}
}

func TestGenerateLinkEmptyResponse(t *testing.T) {
	client := NewClient(testConfig())

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		httpmock.NewStringResponder(http.StatusOK, `{"aliexpress_affiliate_link_generate_response":{"resp_result":{"result":{}}}}`))
	client.WithTransport(transport)

	if _, err := client.GenerateLink(context.Background(), "https://item.test/1"); err == nil {
		t.Fatalf("expected error for missing promotion link")
	}
}

func TestCallRetriesRateLimitedResponses(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	client := NewClient(cfg)

	calls := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, productQueryBody), nil
		})
	client.WithTransport(transport)

	items, err := client.ProductQuery(context.Background(), "folding chair")
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
}

func TestCallDoesNotRetryForbidden(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3
	client := NewClient(cfg)

	calls := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusForbidden, ""), nil
		})
	client.WithTransport(transport)

	_, err := client.ProductQuery(context.Background(), "x")
	if err == nil {
		t.Fatalf("expected forbidden error")
	}
	if calls != 1 {
		t.Fatalf("forbidden must not be retried, calls = %d", calls)
	}
	if errorTypeLabel(err) != "forbidden" {
		t.Fatalf("error label = %q, want forbidden", errorTypeLabel(err))
	}
}

func TestTimestampLayout(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)
	client.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 30, 45, 123e6, time.UTC)
	}

	var seen string
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`,
		func(req *http.Request) (*http.Response, error) {
			seen = req.URL.Query().Get("timestamp")
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})
	client.WithTransport(transport)

	if _, err := client.ProductQuery(context.Background(), "x"); err != nil {
		t.Fatalf("product query: %v", err)
	}
	if seen != "2025-06-01T12:30:45+00:00" {
		t.Fatalf("timestamp = %q, want 2025-06-01T12:30:45+00:00", seen)
	}
}
