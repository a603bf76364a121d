package translate

import (
	"context"
	"strings"
)

// Dictionary consults a fixed phrase table before delegating to the wrapped
// provider. The provider repeatedly mistranslated a handful of common product
// phrases, so those are pinned here.
type Dictionary struct {
	targetLang string
	entries    map[string]string
	next       Translator
}

// NewDictionary wraps next with a phrase table that applies only when
// translating into targetLang.
func NewDictionary(targetLang string, entries map[string]string, next Translator) *Dictionary {
	normalized := make(map[string]string, len(entries))
	for k, v := range entries {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Dictionary{targetLang: targetLang, entries: normalized, next: next}
}

// DefaultSearchPhrases maps Hebrew product phrases to the English search
// terms the catalog understands.
func DefaultSearchPhrases() map[string]string {
	return map[string]string{
		"משקפת לבריכה":       "swimming goggles",
		"משקפי בריכה":        "swimming goggles",
		"משקפת שחייה":        "swimming goggles",
		"משקפי שחייה":        "swimming goggles",
		"צידנית לרכב":        "car cooler",
		"מקרר לרכב":          "car refrigerator",
		"מקרר נייד לרכב":     "portable car refrigerator",
		"מאוורר לעגלת תינוק": "baby stroller fan",
		"מאוורר עגלת תינוק":  "baby stroller fan",
		"מאוורר עגלה":        "stroller fan",
	}
}

// Translate implements Translator.
func (d *Dictionary) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if targetLang == d.targetLang {
		if pinned, ok := d.entries[strings.ToLower(strings.TrimSpace(text))]; ok {
			return pinned, nil
		}
	}
	return d.next.Translate(ctx, text, targetLang)
}
