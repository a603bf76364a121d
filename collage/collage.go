// Package collage builds the annotated 2x2 product grid: each ranked
// product's image is fetched, resized, stamped with a rank badge, and placed
// into its quadrant of a single encoded canvas.
package collage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/outravel/go-dealfinder/config"
	"github.com/outravel/go-dealfinder/models"
)

const (
	canvasSize  = 600
	tileSize    = 300
	badgeSize   = 80
	badgeOffset = 10
	maxTiles    = 4
)

// ErrNoImages signals that every tile failed and there is nothing to
// composite. Callers fall back to a text-only response.
var ErrNoImages = errors.New("collage: no images could be fetched")

// quadrants maps tile index to canvas position in raster order. Placement is
// index-based: a failed tile leaves its quadrant blank instead of compacting
// the rest.
var quadrants = [maxTiles]image.Point{
	{X: 0, Y: 0},
	{X: tileSize, Y: 0},
	{X: 0, Y: tileSize},
	{X: tileSize, Y: tileSize},
}

// Compositor fetches product images and assembles the collage artifact.
type Compositor struct {
	cfg     *config.Config
	http    *http.Client
	Metrics *Metrics
}

// NewCompositor builds a compositor writing artifacts under cfg.CollageDir.
func NewCompositor(cfg *config.Config) *Compositor {
	return &Compositor{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		Metrics: NewMetrics(),
	}
}

// WithTransport swaps the underlying HTTP transport. Used by tests.
func (c *Compositor) WithTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// Compose fetches up to four product images concurrently, stamps each with
// its rank badge, and encodes the 2x2 grid as a JPEG artifact. A single tile
// failure leaves its quadrant blank; only total failure returns ErrNoImages.
func (c *Compositor) Compose(ctx context.Context, products []models.RankedProduct) (*Artifact, error) {
	if len(products) > maxTiles {
		products = products[:maxTiles]
	}

	start := time.Now()
	tiles := make([]image.Image, len(products))

	g, gctx := errgroup.WithContext(ctx)
	for i, product := range products {
		i, product := i, product
		g.Go(func() error {
			tile, err := c.tile(gctx, badgeNumber(i, product), product.ImageURL)
			if err != nil {
				slog.Warn("collage tile failed",
					slog.Int("rank", product.Rank),
					slog.String("url", product.ImageURL),
					slog.Any("error", err),
				)
				c.Metrics.IncTile("failed")
				return nil
			}
			c.Metrics.IncTile("ok")
			tiles[i] = tile
			return nil
		})
	}
	// Tile goroutines log and skip instead of failing.
	_ = g.Wait()

	composed := 0
	canvas := imaging.New(canvasSize, canvasSize, color.White)
	for i, tile := range tiles {
		if tile == nil {
			continue
		}
		canvas = imaging.Paste(canvas, tile, quadrants[i])
		composed++
	}
	if composed == 0 {
		c.Metrics.IncCollage("empty")
		return nil, ErrNoImages
	}

	if err := os.MkdirAll(c.cfg.CollageDir, 0o755); err != nil {
		c.Metrics.IncCollage("error")
		return nil, fmt.Errorf("create collage directory: %w", err)
	}
	path := filepath.Join(c.cfg.CollageDir, "collage_"+uuid.NewString()+".jpg")
	if err := imaging.Save(canvas, path, imaging.JPEGQuality(90)); err != nil {
		c.Metrics.IncCollage("error")
		return nil, fmt.Errorf("encode collage: %w", err)
	}

	slog.Debug("collage written",
		slog.String("path", path),
		slog.Int("tiles", composed),
	)
	c.Metrics.IncCollage("ok")
	c.Metrics.ObserveDuration(time.Since(start))
	return &Artifact{path: path}, nil
}

// tile fetches one product image, resizes it to its grid cell, and overlays
// the rank badge at the fixed offset.
func (c *Compositor) tile(ctx context.Context, number int, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: http status %d", resp.StatusCode)
	}

	decoded, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Resize(decoded, tileSize, tileSize, imaging.Lanczos)

	badge, err := renderBadge(number, badgeSize)
	if err != nil {
		return nil, err
	}
	return imaging.Overlay(resized, badge, image.Pt(badgeOffset, badgeOffset), 1.0), nil
}

// badgeNumber picks the number stamped on a tile: the product's rank when it
// is dense and valid, the slot position otherwise.
func badgeNumber(index int, product models.RankedProduct) int {
	if product.Rank >= 1 && product.Rank <= maxTiles {
		return product.Rank
	}
	return index + 1
}
