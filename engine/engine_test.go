package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/outravel/go-dealfinder/cache"
	"github.com/outravel/go-dealfinder/catalog"
	"github.com/outravel/go-dealfinder/config"
)

type fakeTranslator struct {
	err   error
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return targetLang + ":" + text, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = "https://gateway.test/sync"
	cfg.AppKey = "app-key"
	cfg.AppSecret = "app-secret"
	cfg.TrackingID = "tracker"
	cfg.MaxRetries = 0
	cfg.CacheTTL = time.Minute
	return cfg
}

// catalogResponder serves both gateway methods from one endpoint, the way the
// real gateway multiplexes on the method parameter.
func catalogResponder(t *testing.T, productBody string, linkStatus int, queryCalls *int) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		switch req.URL.Query().Get("method") {
		case "aliexpress.affiliate.product.query":
			if queryCalls != nil {
				*queryCalls++
			}
			return httpmock.NewStringResponse(http.StatusOK, productBody), nil
		case "aliexpress.affiliate.link.generate":
			if linkStatus != http.StatusOK {
				return httpmock.NewStringResponse(linkStatus, ""), nil
			}
			source := req.URL.Query().Get("source_values")
			return httpmock.NewStringResponse(http.StatusOK, fmt.Sprintf(`{
              "aliexpress_affiliate_link_generate_response": {
                "resp_result": {"result": {"promotion_links": {"promotion_link": [
                  {"promotion_link": "https://s.click.test/?to=%s"}
                ]}}}
              }
            }`, source)), nil
		default:
			t.Fatalf("unexpected gateway method %q", req.URL.Query().Get("method"))
			return nil, nil
		}
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, responder httpmock.Responder, translator *fakeTranslator) *Engine {
	t.Helper()
	client := catalog.NewClient(cfg)
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://gateway\.test/sync`, responder)
	client.WithTransport(transport)
	return New(cfg, client, translator, cache.NewResults(16, cfg.CacheTTL))
}

const sixItemCatalog = `{
  "aliexpress_affiliate_product_query_response": {
    "resp_result": {
      "result": {
        "products": {
          "product": [
            {
              "product_title": "Outdoor folding chair for camping",
              "target_sale_price": "19.99",
              "target_original_price": "39.99",
              "discount": "50%",
              "evaluate_rate": "93.5",
              "lastest_volume": "1,200 sold",
              "product_main_image_url": "https://img.test/a.jpg",
              "product_detail_url": "https://item.test/a"
            },
            {
              "product_title": "Portable folding chair deluxe",
              "sales_count": "45",
              "evaluate_rate": "",
              "product_main_image_url": "https://img.test/b.jpg",
              "product_detail_url": "https://item.test/b"
            },
            {
              "product_title": "Folding camping chair heavy duty",
              "sales_count": "10K+",
              "product_main_image_url": "https://img.test/c.jpg",
              "product_detail_url": "https://item.test/c",
              "promotion_link": "https://promo.test/c"
            },
            {
              "product_title": "Wooden garden table",
              "sales_count": "99999",
              "product_main_image_url": "https://img.test/d.jpg",
              "product_detail_url": "https://item.test/d"
            },
            {
              "product_title": "Replacement fabric for folding chair",
              "sales_count": "88888",
              "product_main_image_url": "https://img.test/e.jpg",
              "product_detail_url": "https://item.test/e"
            },
            {
              "product_title": "Folding chair travel case bag",
              "sales_count": "77777",
              "product_main_image_url": "https://img.test/f.jpg",
              "product_detail_url": "https://item.test/f"
            }
          ]
        }
      }
    }
  }
}`

func TestSearchFiltersRanksAndEnriches(t *testing.T) {
	cfg := testConfig()
	translator := &fakeTranslator{}
	var queryCalls int
	e := newTestEngine(t, cfg, catalogResponder(t, sixItemCatalog, http.StatusOK, &queryCalls), translator)

	products, err := e.Search(context.Background(), "folding chair")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(products) != 3 {
		t.Fatalf("products = %d, want 3 (accessories and off-topic items filtered)", len(products))
	}

	wantOrders := []int{10000, 1200, 45}
	for i, p := range products {
		if p.Rank != i+1 {
			t.Fatalf("rank[%d] = %d, want dense ranks", i, p.Rank)
		}
		if p.Orders != wantOrders[i] {
			t.Fatalf("orders[%d] = %d, want %d", i, p.Orders, wantOrders[i])
		}
	}

	// Top item carried a pre-generated promotion link; it must be the link
	// generation source.
	if !strings.Contains(products[0].URL, "promo.test%2Fc") && !strings.Contains(products[0].URL, "promo.test/c") {
		t.Fatalf("short link %q not derived from promotion link", products[0].URL)
	}

	// Titles are localized by the collaborator.
	if !strings.HasPrefix(products[0].Title, cfg.DisplayLang+":") {
		t.Fatalf("title %q not localized", products[0].Title)
	}

	// Rating normalization: 93.5 -> 4.7, absent -> 4.0.
	if products[1].Rating != "4.7" {
		t.Fatalf("rating = %q, want 4.7", products[1].Rating)
	}
	if products[2].Rating != "4.0" {
		t.Fatalf("default rating = %q, want 4.0", products[2].Rating)
	}

	if products[1].Price != 19.99 || products[1].OriginalPrice != 39.99 {
		t.Fatalf("price = %v/%v", products[1].Price, products[1].OriginalPrice)
	}
	if products[1].Discount == nil || *products[1].Discount != 50 {
		t.Fatalf("discount = %v, want 50", products[1].Discount)
	}
}

func TestSearchEmptyCatalogIsNotAnError(t *testing.T) {
	body := `{"aliexpress_affiliate_product_query_response":{"resp_result":{"result":{}}}}`
	e := newTestEngine(t, testConfig(), catalogResponder(t, body, http.StatusOK, nil), &fakeTranslator{})

	products, err := e.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("products = %d, want 0", len(products))
	}
}

func TestSearchAllItemsFilteredOut(t *testing.T) {
	body := `{"aliexpress_affiliate_product_query_response":{"resp_result":{"result":{"products":{"product":[
      {"product_title": "Replacement cushion", "sales_count": "100"},
      {"product_title": "Unrelated wooden table", "sales_count": "200"}
    ]}}}}}`
	e := newTestEngine(t, testConfig(), catalogResponder(t, body, http.StatusOK, nil), &fakeTranslator{})

	products, err := e.Search(context.Background(), "folding chair")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("products = %d, want 0", len(products))
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	e := newTestEngine(t, testConfig(), httpmock.NewStringResponder(http.StatusInternalServerError, ""), &fakeTranslator{})

	if _, err := e.Search(context.Background(), "folding chair"); err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestSearchUsesCacheWithinTTL(t *testing.T) {
	cfg := testConfig()
	var queryCalls int
	e := newTestEngine(t, cfg, catalogResponder(t, sixItemCatalog, http.StatusOK, &queryCalls), &fakeTranslator{})

	first, err := e.Search(context.Background(), "Folding Chair")
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := e.Search(context.Background(), "  folding chair ")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if queryCalls != 1 {
		t.Fatalf("catalog queried %d times, want 1 (cache hit, key normalized)", queryCalls)
	}
	if len(first) != len(second) || first[0].Title != second[0].Title {
		t.Fatalf("cached result differs from original")
	}
}

func TestSearchEnrichmentDegradesPerField(t *testing.T) {
	cfg := testConfig()
	translator := &fakeTranslator{err: errors.New("provider down")}
	// Link generation is down as well; both fields must fall back without
	// aborting the aggregation.
	e := newTestEngine(t, cfg, catalogResponder(t, sixItemCatalog, http.StatusInternalServerError, nil), translator)

	products, err := e.Search(context.Background(), "folding chair")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("products = %d, want 3", len(products))
	}

	// Untranslated cleaned title.
	if strings.HasPrefix(products[0].Title, cfg.DisplayLang+":") {
		t.Fatalf("expected fallback title, got %q", products[0].Title)
	}
	// Short link falls back to the promotion link when present, the detail
	// URL otherwise.
	if products[0].URL != "https://promo.test/c" {
		t.Fatalf("fallback URL = %q, want promotion link", products[0].URL)
	}
	if products[1].URL != "https://item.test/a" {
		t.Fatalf("fallback URL = %q, want detail URL", products[1].URL)
	}
}
