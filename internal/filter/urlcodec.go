package filter

import (
	"net/url"
	"strconv"
	"strings"

	domain "github.com/brightsprout/storefront-api/internal/domain"
)

// Recognized query parameters. Anything else in the query string is
// ignored by ParseQuery and never produced by EncodeQuery.
const (
	paramCategory          = "category"
	paramMinPrice          = "minPrice"
	paramMaxPrice          = "maxPrice"
	paramSearch            = "search"
	paramSort              = "sort"
	paramView              = "view"
	paramLearningOutcomes  = "learningOutcomes"
	paramSpecialCategories = "specialCategories"
	paramNoPriceFilter     = "noPriceFilter"
)

// ParseQuery deserializes a query string into a state patch, applied once
// per listing lifetime via InitFromURL. Malformed values are dropped
// silently: the affected field simply stays at its default. The parser
// intentionally does not distinguish an absent parameter from one set to
// its default value; the asymmetry with EncodeQuery is preserved as
// observed in the storefront.
func ParseQuery(values url.Values) Patch {
	var patch Patch
	if values == nil {
		return patch
	}

	patch.Categories = splitNormalized(values[paramCategory])

	if priceRange, ok := parsePriceRange(values.Get(paramMinPrice), values.Get(paramMaxPrice)); ok {
		patch.PriceRange = &priceRange
	}

	if values.Has(paramSearch) {
		search := values.Get(paramSearch)
		patch.SearchQuery = &search
	}
	if values.Has(paramSort) {
		sort := domain.SortKey(values.Get(paramSort))
		patch.SortBy = &sort
	}

	switch domain.ViewMode(values.Get(paramView)) {
	case domain.ViewModeGrid:
		mode := domain.ViewModeGrid
		patch.ViewMode = &mode
	case domain.ViewModeList:
		mode := domain.ViewModeList
		patch.ViewMode = &mode
	}

	patch.LearningOutcomes = splitPlain(values[paramLearningOutcomes])
	patch.SpecialCategories = splitPlain(values[paramSpecialCategories])

	if values.Has(paramNoPriceFilter) {
		disabled := values.Get(paramNoPriceFilter) == "true"
		patch.NoPriceFilter = &disabled
	}

	return patch
}

// EncodeQuery serializes the state to its canonical query string form.
// Only non-default fields are written to keep shared URLs short; the
// transient MobileFiltersOpen flag is never persisted.
func EncodeQuery(s State) url.Values {
	values := url.Values{}

	if len(s.SelectedCategories) > 0 {
		values.Set(paramCategory, strings.Join(s.SelectedCategories, ","))
	}
	if !s.NoPriceFilter {
		values.Set(paramMinPrice, formatPrice(s.PriceRange.Min))
		values.Set(paramMaxPrice, formatPrice(s.PriceRange.Max))
	}
	if s.SearchQuery != "" {
		values.Set(paramSearch, s.SearchQuery)
	}
	if s.SortBy != "" && s.SortBy != domain.SortRelevance {
		values.Set(paramSort, string(s.SortBy))
	}
	if s.ViewMode != "" && s.ViewMode != domain.ViewModeGrid {
		values.Set(paramView, string(s.ViewMode))
	}
	if len(s.LearningOutcomes) > 0 {
		values.Set(paramLearningOutcomes, strings.Join(s.LearningOutcomes, ","))
	}
	if len(s.SpecialCategories) > 0 {
		values.Set(paramSpecialCategories, strings.Join(s.SpecialCategories, ","))
	}
	if s.NoPriceFilter {
		values.Set(paramNoPriceFilter, "true")
	}

	return values
}

// parsePriceRange accepts the pair only when both bounds are non-negative
// integers with min strictly below max; anything else is ignored without
// surfacing an error to the user.
func parsePriceRange(rawMin, rawMax string) (PriceRange, bool) {
	minValue, err := strconv.Atoi(strings.TrimSpace(rawMin))
	if err != nil || minValue < 0 {
		return PriceRange{}, false
	}
	maxValue, err := strconv.Atoi(strings.TrimSpace(rawMax))
	if err != nil || maxValue < 0 {
		return PriceRange{}, false
	}
	if minValue >= maxValue {
		return PriceRange{}, false
	}
	return PriceRange{Min: float64(minValue), Max: float64(maxValue)}, true
}

func splitNormalized(raw []string) []string {
	var segments []string
	for _, value := range raw {
		for _, segment := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(segment)
			if trimmed == "" {
				continue
			}
			segments = append(segments, Normalize(trimmed))
		}
	}
	return dedupeByNormal(segments)
}

func splitPlain(raw []string) []string {
	var segments []string
	for _, value := range raw {
		for _, segment := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(segment)
			if trimmed == "" {
				continue
			}
			segments = append(segments, trimmed)
		}
	}
	return segments
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
