package engine

import (
	"fmt"
	"strings"

	"github.com/outravel/go-dealfinder/models"
	"github.com/outravel/go-dealfinder/parser"
)

var rankBadges = []string{"🥇", "🥈", "🥉", "🏅"}

// BuildSummary renders the ranked products as the HTML caption that
// accompanies the collage. The delivery layer sends it as-is.
func BuildSummary(products []models.RankedProduct, originalQuery, translatedQuery string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 <b>תוצאות חיפוש עבור: %q</b>\n📝 <i>(%s)</i>\n\n", originalQuery, translatedQuery)

	for _, p := range products {
		badge := rankBadges[len(rankBadges)-1]
		if p.Rank >= 1 && p.Rank <= len(rankBadges) {
			badge = rankBadges[p.Rank-1]
		}
		fmt.Fprintf(&b, "%s <b>%s</b>\n", badge, p.Title)
		fmt.Fprintf(&b, "⭐ דירוג: %s/5\n", p.Rating)
		fmt.Fprintf(&b, "🛒 מכירות: %s\n", parser.FormatNumber(p.Orders))
		fmt.Fprintf(&b, "💰 מחיר: $%v", p.Price)
		if p.Discount != nil {
			fmt.Fprintf(&b, " <s>$%v</s> (-%d%%)", p.OriginalPrice, *p.Discount)
		}
		fmt.Fprintf(&b, "\n🔗 <a href=%q>קישור למוצר</a>\n\n", p.URL)
	}

	return b.String()
}
