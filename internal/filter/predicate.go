package filter

import (
	"sort"
	"strings"

	domain "github.com/brightsprout/storefront-api/internal/domain"
)

// Apply derives the visible product set from the full in-memory list and
// the current filter state. Pure, one linear pass per invocation: product
// lists here are page-sized snapshots, not remote queries, so a full
// rescan on every state change is cheap enough. A product is included only
// when it passes every active predicate; predicates with empty or disabled
// selections are vacuously true.
func Apply(products []domain.Product, s State) []domain.Product {
	result := make([]domain.Product, 0, len(products))
	for _, product := range products {
		if matches(product, s) {
			result = append(result, product)
		}
	}
	sortProducts(result, s.SortBy)
	return result
}

func matches(p domain.Product, s State) bool {
	if !matchesCategories(p, s.SelectedCategories) {
		return false
	}
	if !s.NoPriceFilter && !matchesPrice(p, s.PriceRange) {
		return false
	}
	if !matchesSearch(p, s.SearchQuery) {
		return false
	}
	if !matchesGroups(p, s.SelectedFilters) {
		return false
	}
	if !matchesProductType(p, s.ProductType) {
		return false
	}
	if !matchesOutcomes(p, s.LearningOutcomes) {
		return false
	}
	if !matchesSpecials(p, s.SpecialCategories) {
		return false
	}
	return true
}

func matchesCategories(p domain.Product, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	slug := Normalize(p.Category.Name)
	for _, entry := range selected {
		if Normalize(entry) == slug {
			return true
		}
	}
	return false
}

// matchesPrice excludes products whose price does not parse: a product
// without a usable number cannot prove it falls inside the range.
func matchesPrice(p domain.Product, r PriceRange) bool {
	amount, ok := p.PriceAmount()
	if !ok {
		return false
	}
	return amount >= r.Min && amount <= r.Max
}

func matchesSearch(p domain.Product, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{
		p.Name,
		p.Description,
		p.Category.Name,
		p.STEMDiscipline,
	}, " "))
	return strings.Contains(haystack, query)
}

// matchesGroups applies dynamic attribute groups. A product missing the
// group's field is never excluded by that group: absence is not mismatch.
func matchesGroups(p domain.Product, groups map[string][]string) bool {
	for group, options := range groups {
		value, known := attributeValue(p, group)
		if !known || value == "" {
			continue
		}
		if !containsString(options, value) {
			return false
		}
	}
	return true
}

func matchesProductType(p domain.Product, selected string) bool {
	if selected == "" || p.ProductType == "" {
		return true
	}
	return p.ProductType == selected
}

// matchesOutcomes requires an intersection with the selection: any shared
// outcome passes, not all of them.
func matchesOutcomes(p domain.Product, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	return intersects(p.LearningOutcomes, selected)
}

// matchesSpecials passes on an explicit tag intersection, or — for the
// sale-items selector — on derived membership when the compare-at price
// exceeds the current price even without an explicit tag.
func matchesSpecials(p domain.Product, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	if intersects(p.SpecialCategories, selected) {
		return true
	}
	if containsString(selected, domain.SpecialCategorySaleItems) && p.OnSale() {
		return true
	}
	return false
}

func attributeValue(p domain.Product, group string) (string, bool) {
	switch group {
	case "ageGroup":
		return p.AgeGroup, true
	case "productType":
		return p.ProductType, true
	case "stemCategory":
		return p.STEMCategory, true
	case "stemDiscipline":
		return p.STEMDiscipline, true
	default:
		return "", false
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, value := range a {
		if containsString(b, value) {
			return true
		}
	}
	return false
}

// sortProducts orders the already-filtered set in place. Every comparison
// is stable so ties keep the catalog's own ordering.
func sortProducts(products []domain.Product, key domain.SortKey) {
	switch key {
	case domain.SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return numericPrice(products[i]) < numericPrice(products[j])
		})
	case domain.SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return numericPrice(products[i]) > numericPrice(products[j])
		})
	case domain.SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	case domain.SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Rating > products[j].Rating
		})
	default:
		// relevance, featured, and anything unrecognized: featured first.
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Featured && !products[j].Featured
		})
	}
}

func numericPrice(p domain.Product) float64 {
	amount, ok := p.PriceAmount()
	if !ok {
		return 0
	}
	return amount
}
