package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/outravel/go-dealfinder/cache"
	"github.com/outravel/go-dealfinder/catalog"
	"github.com/outravel/go-dealfinder/collage"
	"github.com/outravel/go-dealfinder/config"
	"github.com/outravel/go-dealfinder/engine"
	"github.com/outravel/go-dealfinder/models"
	"github.com/outravel/go-dealfinder/output"
	"github.com/outravel/go-dealfinder/translate"
)

func main() {
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	metricsDefault := ""
	if value, ok := config.EnvString("DEALFINDER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	collageDirDefault := defaultCfg.CollageDir
	if value, ok := config.EnvString("DEALFINDER_COLLAGE_DIR"); ok {
		collageDirDefault = value
	}
	topNDefault := defaultCfg.TopN
	if value, ok, err := config.EnvInt("DEALFINDER_TOP_N"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid DEALFINDER_TOP_N: %v\n", err)
		os.Exit(1)
	} else if ok {
		topNDefault = value
	}

	query := flag.String("query", "", "Search query (in any supported language)")
	displayLang := flag.String("display-lang", defaultCfg.DisplayLang, "Language product titles are localized to")
	searchLang := flag.String("search-lang", "en", "Language queries are translated to before the catalog call")
	shipTo := flag.String("ship-to", defaultCfg.ShipToCountry, "Ship-to country code")
	topN := flag.Int("top", topNDefault, "Number of ranked products to return (1-4)")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-request HTTP timeout")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per gateway call")
	rateLimit := flag.Float64("rate-limit", 0, "Catalog requests per second (0 = unlimited)")
	collageDir := flag.String("collage-dir", collageDirDefault, "Directory for collage artifacts")
	noCollage := flag.Bool("no-collage", false, "Skip the collage and print text only")
	keepCollage := flag.Bool("keep-collage", true, "Keep the collage file after printing its path")
	outputFile := flag.String("output", "", "Optional result export file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Export format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if *query == "" && flag.NArg() > 0 {
		joined := strings.Join(flag.Args(), " ")
		query = &joined
	}
	if *query == "" {
		fmt.Fprintln(os.Stderr, "usage: dealfinder -query \"folding chair\"")
		os.Exit(1)
	}

	cfg := defaultCfg
	cfg.DisplayLang = *displayLang
	cfg.ShipToCountry = *shipTo
	cfg.TopN = *topN
	cfg.Timeout = *timeout
	cfg.MaxRetries = *maxRetries
	cfg.RateLimit = *rateLimit
	cfg.CollageDir = *collageDir
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	cfg.AppKey, _ = config.EnvString("ALIEXPRESS_APP_KEY")
	cfg.AppSecret, _ = config.EnvString("ALIEXPRESS_APP_SECRET")
	cfg.TrackingID, _ = config.EnvString("TRACKING_ID")

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.AppKey == "" || cfg.AppSecret == "" {
		slog.Error("ALIEXPRESS_APP_KEY and ALIEXPRESS_APP_SECRET must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	translator := buildTranslator(cfg)
	client := catalog.NewClient(cfg)
	results := cache.NewResults(cfg.CacheSize, cfg.CacheTTL)
	e := engine.New(cfg, client, translator, results)
	compositor := collage.NewCompositor(cfg)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		gatherers := prometheus.Gatherers{
			client.Metrics.Registry,
			e.Metrics.Registry,
			compositor.Metrics.Registry,
		}
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	translated, err := translator.Translate(ctx, *query, *searchLang)
	if err != nil {
		slog.Warn("query translation failed, searching verbatim", slog.Any("error", err))
		translated = *query
	}
	slog.Info("searching",
		slog.String("query", *query),
		slog.String("translated", translated),
	)

	start := time.Now()
	products, err := e.Search(ctx, translated)
	if err != nil {
		// Upstream failures read as "no results" to the user.
		slog.Error("search failed", slog.Any("error", err))
	}
	if len(products) == 0 {
		fmt.Printf("No results for %q\n", *query)
		shutdownMetrics(metricsServer)
		return
	}

	fmt.Println(engine.BuildSummary(products, *query, translated))

	if cfg.OutputFile != "" {
		if err := exportResults(cfg.OutputFormat, cfg.OutputFile, products); err != nil {
			slog.Error("export failed", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("results exported", slog.String("file", cfg.OutputFile))
	}

	if !*noCollage {
		artifact, err := compositor.Compose(ctx, products)
		switch {
		case errors.Is(err, collage.ErrNoImages):
			slog.Warn("no product image could be fetched, text summary only")
		case err != nil:
			slog.Error("collage failed", slog.Any("error", err))
		default:
			fmt.Printf("Collage: %s\n", artifact.Path())
			if !*keepCollage {
				if err := artifact.Release(); err != nil {
					slog.Warn("collage cleanup failed", slog.Any("error", err))
				}
			}
		}
	}

	slog.Info("done",
		slog.Int("products", len(products)),
		slog.Duration("elapsed", time.Since(start)),
	)
	shutdownMetrics(metricsServer)
}

// buildTranslator assembles the translation chain: pinned phrase dictionary
// in front of Google Translate when a key is configured, otherwise a no-op.
func buildTranslator(cfg *config.Config) translate.Translator {
	var provider translate.Translator = translate.Noop{}
	if key, ok := config.EnvString("GOOGLE_API_KEY"); ok {
		provider = translate.NewGoogleClient(key, cfg.Timeout)
	} else {
		slog.Warn("GOOGLE_API_KEY not set, translation disabled")
	}
	return translate.NewDictionary("en", translate.DefaultSearchPhrases(), provider)
}

func exportResults(format, filename string, products []models.RankedProduct) error {
	writer, err := output.New(format, filename)
	if err != nil {
		return err
	}
	if err := writer.Write(products); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return writer.Validate()
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
