// Package engine implements the product aggregation and ranking flow: query
// the catalog, filter for relevance, rank by sales volume, enrich the top
// products, and memoize the result.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outravel/go-dealfinder/cache"
	"github.com/outravel/go-dealfinder/catalog"
	"github.com/outravel/go-dealfinder/config"
	"github.com/outravel/go-dealfinder/models"
	"github.com/outravel/go-dealfinder/parser"
	"github.com/outravel/go-dealfinder/translate"
)

// Engine orchestrates one search: catalog query, relevance filtering,
// sales ranking, concurrent enrichment, and caching. The cache is owned by
// the composing application and injected here.
type Engine struct {
	cfg        *config.Config
	catalog    *catalog.Client
	translator translate.Translator
	results    *cache.Results
	Metrics    *Metrics
}

// New builds an engine. translator may be nil, in which case titles stay in
// the catalog language.
func New(cfg *config.Config, client *catalog.Client, translator translate.Translator, results *cache.Results) *Engine {
	if translator == nil {
		translator = translate.Noop{}
	}
	return &Engine{
		cfg:        cfg,
		catalog:    client,
		translator: translator,
		results:    results,
		Metrics:    NewMetrics(),
	}
}

// Search returns up to TopN ranked, enriched products for query. The query is
// expected to already be in the catalog's search language; relevance is
// scored against this exact text. An empty result is a normal outcome. An
// error means the catalog itself was unreachable or unparseable; callers
// present that as "no results".
func (e *Engine) Search(ctx context.Context, query string) ([]models.RankedProduct, error) {
	key := cache.Key(query)
	if products, ok := e.results.Get(key); ok {
		slog.Debug("cache hit", slog.String("query", key))
		e.Metrics.IncSearch("cache_hit")
		return products, nil
	}

	start := time.Now()
	items, err := e.catalog.ProductQuery(ctx, query)
	if err != nil {
		e.Metrics.IncSearch("upstream_error")
		return nil, fmt.Errorf("catalog query %q: %w", query, err)
	}
	if len(items) == 0 {
		e.Metrics.IncSearch("empty")
		return nil, nil
	}

	relevant := items[:0:0]
	for _, item := range items {
		if parser.IsRelevant(item.Title, query) {
			relevant = append(relevant, item)
		} else {
			e.Metrics.IncFiltered()
		}
	}
	slog.Debug("relevance filter",
		slog.String("query", key),
		slog.Int("raw", len(items)),
		slog.Int("relevant", len(relevant)),
	)
	if len(relevant) == 0 {
		e.Metrics.IncSearch("empty")
		return nil, nil
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return salesOf(relevant[i]) > salesOf(relevant[j])
	})

	top := relevant
	if len(top) > e.cfg.TopN {
		top = top[:e.cfg.TopN]
	}

	// Each enrichment writes only its own slot; results are joined
	// positionally, so completion order does not matter.
	ranked := make([]models.RankedProduct, len(top))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range top {
		i, item := i, item
		g.Go(func() error {
			ranked[i] = e.enrich(gctx, i+1, item)
			return nil
		})
	}
	// Enrichment goroutines degrade per-field instead of failing.
	_ = g.Wait()

	e.results.Put(key, ranked)
	e.Metrics.IncSearch("ok")
	e.Metrics.ObserveDuration(time.Since(start))
	return ranked, nil
}

// enrich assembles one ranked product. Translation and link-generation
// failures degrade that one field to a fallback and never abort the batch.
func (e *Engine) enrich(ctx context.Context, rank int, item models.CatalogItem) models.RankedProduct {
	title := parser.CleanTitle(item.Title)

	localized, err := e.translator.Translate(ctx, title, e.cfg.DisplayLang)
	if err != nil || localized == "" {
		if err != nil {
			slog.Warn("title translation failed",
				slog.Int("rank", rank),
				slog.Any("error", err),
			)
		}
		e.Metrics.IncFallback("title")
		localized = title
	}

	source := item.PromotionLink
	if source == "" {
		source = item.DetailURL
	}
	link, err := e.catalog.GenerateLink(ctx, source)
	if err != nil {
		slog.Warn("short link generation failed",
			slog.Int("rank", rank),
			slog.Any("error", err),
		)
		e.Metrics.IncFallback("link")
		link = source
	}

	price := parser.ParsePrice(string(item.TargetSalePrice))
	if price == 0 {
		price = parser.ParsePrice(string(item.TargetAppSalePrice))
	}

	return models.RankedProduct{
		Rank:          rank,
		Title:         localized,
		Price:         price,
		OriginalPrice: parser.ParsePrice(string(item.TargetOrigPrice)),
		Discount:      parser.ParseDiscount(string(item.Discount)),
		Rating:        parser.NormalizeRating(string(item.EvaluateRate)),
		Orders:        salesOf(item),
		ImageURL:      item.ImageURL,
		URL:           link,
	}
}

// salesOf extracts the ranking figure from whichever sales field the record
// carries.
func salesOf(item models.CatalogItem) int {
	raw := string(item.SalesCount)
	if raw == "" {
		raw = string(item.LastestVolume)
	}
	return parser.ExtractSalesCount(raw)
}
