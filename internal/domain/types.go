package domain

import (
	"strconv"
	"strings"
	"time"
)

// SortKey indicates the ordering applied to a filtered product listing.
type SortKey string

const (
	// SortRelevance keeps the catalog's own ordering with featured items first.
	SortRelevance SortKey = "relevance"
	// SortPriceLow orders products by ascending numeric price.
	SortPriceLow SortKey = "price-low"
	// SortPriceHigh orders products by descending numeric price.
	SortPriceHigh SortKey = "price-high"
	// SortNewest orders products by creation time, newest first.
	SortNewest SortKey = "newest"
	// SortRating orders products by rating, highest first.
	SortRating SortKey = "rating"
	// SortFeatured places featured products first, otherwise stable.
	SortFeatured SortKey = "featured"
)

// ViewMode describes how a storefront client renders the product listing.
type ViewMode string

const (
	// ViewModeGrid renders products as a grid of cards.
	ViewModeGrid ViewMode = "grid"
	// ViewModeList renders products as a vertical list.
	ViewModeList ViewMode = "list"
)

// SpecialCategorySaleItems marks the derived sale-items selector: products
// whose compare-at price exceeds the current price qualify even when their
// own special category list does not tag them.
const SpecialCategorySaleItems = "SALE_ITEMS"

// CategoryRef carries the display metadata of a product's category as it
// arrives from the catalog feed. Names are free-form and may be localized;
// comparisons always go through the canonical slug.
type CategoryRef struct {
	Name string
	Slug string
}

// Product is an immutable catalog entry loaded into memory by the
// repository layer. Prices arrive as decimal strings from the feed and are
// parsed on demand; a non-numeric price simply fails the parse.
type Product struct {
	ID                string
	Slug              string
	Name              string
	Description       string
	Category          CategoryRef
	STEMCategory      string
	STEMDiscipline    string
	AgeGroup          string
	ProductType       string
	LearningOutcomes  []string
	SpecialCategories []string
	Price             string
	CompareAtPrice    string
	Currency          string
	ImageURLs         []string
	Featured          bool
	Rating            float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PriceAmount parses the product price, reporting whether it is numeric.
func (p Product) PriceAmount() (float64, bool) {
	return parseAmount(p.Price)
}

// CompareAtAmount parses the compare-at price, reporting whether it is numeric.
func (p Product) CompareAtAmount() (float64, bool) {
	return parseAmount(p.CompareAtPrice)
}

// OnSale reports whether the product qualifies for the derived sale-items
// membership: a numeric compare-at price strictly above the numeric price.
func (p Product) OnSale() bool {
	price, ok := p.PriceAmount()
	if !ok {
		return false
	}
	compare, ok := p.CompareAtAmount()
	if !ok {
		return false
	}
	return compare > price
}

func parseAmount(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// CategoryCount summarises how many products resolve to a canonical
// category slug, used by the storefront categories listing.
type CategoryCount struct {
	Slug  string
	Name  string
	Count int
}

// Language describes one available digital language edition of a book,
// as reported by the upstream content service.
type Language struct {
	Code    string
	Name    string
	Formats []string
}

// Health statuses reported by dependency probes.
const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates a dependency is failing but the
	// service keeps running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates a critical dependency is unavailable.
	HealthStatusError = "error"
)

// HealthCheck describes the outcome of one dependency probe.
type HealthCheck struct {
	Status    string
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates dependency status for the readiness endpoint.
type HealthReport struct {
	Status      string
	Checks      map[string]HealthCheck
	GeneratedAt time.Time
}
