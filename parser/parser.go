// Package parser holds the pure normalization and filtering functions applied
// to catalog records: promotional title cleanup, relevance scoring, and
// extraction of the loosely-typed sales and rating fields.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxTitleLen bounds cleaned titles; longer titles are cut to truncTitleLen
// runes plus an ellipsis marker.
const (
	maxTitleLen   = 60
	truncTitleLen = 57
)

// promoPhrases are boilerplate fragments the catalog injects into titles.
var promoPhrases = []string{
	"Free Shipping", "Hot Sale", "New", "Original", "Promotion",
	"High Quality", "Best Seller", "Factory", "Direct", "Wholesale",
	"2024", "2025", "Fast Delivery", "In Stock",
}

// accessoryMarkers flag listings that are accessories for a product rather
// than the product itself. Sales-ranked results frequently surface cases and
// cables above the actual item, so these reject outright.
var accessoryMarkers = []string{
	"suitable for", "replacement", "case", "cover", "cable",
	"earpads", "cushion", "stand", "adapter", "charger",
	"compatible with", "for anker", "misodiko", "geekria",
	"protective", "storage", "carrying", "travel case",
}

// minCoverage is the fraction of query tokens that must appear in a title for
// it to count as relevant.
const minCoverage = 0.6

var promoPattern = regexp.MustCompile("(?i)" + strings.Join(promoPhrases, "|"))

// CleanTitle strips promotional boilerplate and stray punctuation from a raw
// product title, collapses whitespace, and truncates overlong results. It is
// total: any input, including the empty string, yields a valid title.
func CleanTitle(raw string) string {
	cleaned := promoPattern.ReplaceAllString(raw, "")
	cleaned = strings.NewReplacer("|", "", "!", "").Replace(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) > maxTitleLen {
		cleaned = string(runes[:truncTitleLen]) + "..."
	}
	return cleaned
}

// IsRelevant reports whether a product title actually matches the search
// query. Accessory listings are rejected regardless of keyword overlap; the
// rest must contain at least 60% of the query tokens longer than two runes.
// A query with no such tokens matches nothing.
func IsRelevant(title, query string) bool {
	lowerTitle := strings.ToLower(title)
	for _, marker := range accessoryMarkers {
		if strings.Contains(lowerTitle, marker) {
			return false
		}
	}

	var words []string
	for _, word := range strings.Split(strings.ToLower(query), " ") {
		if len([]rune(word)) > 2 {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return false
	}

	matched := 0
	for _, word := range words {
		if strings.Contains(lowerTitle, word) {
			matched++
		}
	}
	return float64(matched)/float64(len(words)) >= minCoverage
}

var salesPattern = regexp.MustCompile(`([0-9][0-9.,]*)\s*([kKmM])?`)

// ExtractSalesCount normalizes the catalog's sales-volume field into an
// integer. The API serves the value in several shapes ("1,200 sold", "45",
// "10K+", bare numbers, or nothing at all); this is the single place that
// tracks that drift. Unparseable input yields 0.
func ExtractSalesCount(raw string) int {
	m := salesPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0
	}

	if m[2] == "" {
		// Separators like "1,200" are thousands grouping.
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m[1])
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0
		}
		return n
	}

	// With a K/M suffix the dot is a decimal point: "1.5K" is 1500.
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		value *= 1e3
	case "m":
		value *= 1e6
	}
	return int(value)
}

// NormalizeRating converts the catalog's percentage rating (0-100) to a
// 0.0-5.0 score with one decimal. Absent or unparseable ratings default to
// "4.0".
func NormalizeRating(raw string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	if trimmed == "" {
		return "4.0"
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return "4.0"
	}
	return strconv.FormatFloat(value/20, 'f', 1, 64)
}

// ParseDiscount reads the catalog's discount field ("50%" or "50") into a
// percentage, returning nil when the field is absent or malformed.
func ParseDiscount(raw string) *int {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	if trimmed == "" {
		return nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil
	}
	return &value
}

// ParsePrice reads a price field, defaulting to 0 when absent or malformed.
func ParsePrice(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

// FormatNumber renders an order count in compact form: 1200 becomes "1.2K",
// 3500000 becomes "3.5M".
func FormatNumber(n int) string {
	switch {
	case n >= 1e6:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return strconv.Itoa(n)
	}
}
