// Package filter implements the storefront's client-facing catalog
// filtering core: the canonical category normalizer, the reducer-driven
// filter state store, the query-string codec, and the predicate engine
// that derives the visible product set.
package filter

import (
	"strings"

	"github.com/brightsprout/storefront-api/internal/platform/textutil"
)

// Canonical category slugs produced by Normalize.
const (
	SlugEducationalBooks = "educational-books"
	SlugEngineering      = "engineering"
	SlugMathematics      = "mathematics"
)

// Normalize maps a free-form category label, including localized Romanian
// variants, to its canonical slug. Matching is case- and
// diacritic-insensitive; unknown labels pass through lowercased so that
// categories without an alias family keep working unmodified.
func Normalize(raw string) string {
	folded := textutil.Fold(raw)
	if folded == "" {
		return ""
	}

	switch folded {
	case "books", "carti", "carti educationale", "educational books", "educational-books":
		return SlugEducationalBooks
	case "inginerie", "invatare prin inginerie", "engineeringlearning", "engineering learning":
		return SlugEngineering
	case "mathematics", "matematica":
		return SlugMathematics
	}

	if strings.Contains(folded, "book") || strings.Contains(folded, "carte") {
		return SlugEducationalBooks
	}
	if strings.Contains(folded, "engineer") {
		return SlugEngineering
	}
	if strings.Contains(folded, "math") || strings.Contains(folded, "mate") {
		return SlugMathematics
	}

	return strings.ToLower(strings.TrimSpace(raw))
}
