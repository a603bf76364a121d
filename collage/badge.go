package collage

import (
	"fmt"
	"image"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

// badgeColors is the fixed per-rank palette: gold, silver, bronze, royal
// blue. Ranks past the palette reuse the last entry.
var badgeColors = []struct {
	bg   string
	text string
}{
	{bg: "#FFD700", text: "#000000"},
	{bg: "#C0C0C0", text: "#000000"},
	{bg: "#CD7F32", text: "#FFFFFF"},
	{bg: "#4169E1", text: "#FFFFFF"},
}

var (
	badgeFontOnce sync.Once
	badgeFont     *truetype.Font
	badgeFontErr  error
)

func loadBadgeFont() (*truetype.Font, error) {
	badgeFontOnce.Do(func() {
		badgeFont, badgeFontErr = truetype.Parse(gobold.TTF)
	})
	return badgeFont, badgeFontErr
}

// renderBadge draws the circular numbered rank badge: a filled disc with a
// black outline and the rank number centered in it.
func renderBadge(number, size int) (image.Image, error) {
	ttf, err := loadBadgeFont()
	if err != nil {
		return nil, fmt.Errorf("load badge font: %w", err)
	}

	palette := badgeColors[len(badgeColors)-1]
	if number >= 1 && number <= len(badgeColors) {
		palette = badgeColors[number-1]
	}

	half := float64(size) / 2
	dc := gg.NewContext(size, size)

	dc.DrawCircle(half, half, half-5)
	dc.SetHexColor(palette.bg)
	dc.FillPreserve()
	dc.SetHexColor("#000000")
	dc.SetLineWidth(2)
	dc.Stroke()

	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    half,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	dc.SetFontFace(face)
	dc.SetHexColor(palette.text)
	dc.DrawStringAnchored(strconv.Itoa(number), half, half, 0.5, 0.5)

	return dc.Image(), nil
}
