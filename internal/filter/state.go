package filter

import (
	"strings"

	domain "github.com/brightsprout/storefront-api/internal/domain"
)

// Default bounds for the price range filter. The range is inactive until
// NoPriceFilter is explicitly turned off.
const (
	DefaultPriceMin = 0
	DefaultPriceMax = 1000
)

// PriceRange is an inclusive [Min, Max] interval. Callers feeding the
// reducer are responsible for keeping Min <= Max; the reducer itself never
// rejects a payload.
type PriceRange struct {
	Min float64
	Max float64
}

// State holds every active filter selection of one storefront listing.
// Values are treated as immutable: Reduce returns a fresh State and never
// mutates shared slices or maps in place.
type State struct {
	// SelectedCategories holds canonical slugs; no two entries normalize
	// to the same value.
	SelectedCategories []string
	// SelectedFilters maps attribute group ids (ageGroup, productType, ...)
	// to the selected option ids. A group absent from the map means no
	// constraint; the map never holds a group with an empty selection.
	SelectedFilters   map[string][]string
	PriceRange        PriceRange
	NoPriceFilter     bool
	LearningOutcomes  []string
	ProductType       string
	SpecialCategories []string
	SearchQuery       string
	SortBy            domain.SortKey
	ViewMode          domain.ViewMode
	// MobileFiltersOpen is a transient UI flag, never serialized to the
	// query string.
	MobileFiltersOpen bool
}

// NewState returns the documented defaults for a freshly mounted listing.
func NewState() State {
	return State{
		PriceRange:    PriceRange{Min: DefaultPriceMin, Max: DefaultPriceMax},
		NoPriceFilter: true,
		SortBy:        domain.SortRelevance,
		ViewMode:      domain.ViewModeGrid,
	}
}

// Patch carries the partial state parsed from a query string. Nil pointers
// and empty slices leave the corresponding field untouched when merged.
type Patch struct {
	Categories        []string
	PriceRange        *PriceRange
	NoPriceFilter     *bool
	SearchQuery       *string
	SortBy            *domain.SortKey
	ViewMode          *domain.ViewMode
	LearningOutcomes  []string
	SpecialCategories []string
}

// Action is a reducer input. Every action has a total, defined effect for
// all payload shapes its type accepts; Reduce never fails.
type Action interface {
	isAction()
}

// SetCategories replaces the category selection verbatim. Callers are
// expected to pre-normalize; the reducer still de-duplicates entries that
// normalize to the same slug so the invariant holds regardless.
type SetCategories struct{ Categories []string }

// ToggleCategory normalizes the label and removes a normalized-equal entry
// if present, otherwise adds the normalized form.
type ToggleCategory struct{ Category string }

// SetFilter toggles an option's membership within an attribute group,
// dropping the group key entirely when its selection becomes empty.
type SetFilter struct {
	Group  string
	Option string
}

// SetPriceRange overwrites the price range. Clamping is the input
// control's responsibility, not the reducer's.
type SetPriceRange struct{ Range PriceRange }

// SetNoPriceFilter overwrites the price-filter-disabled flag.
type SetNoPriceFilter struct{ Disabled bool }

// SetLearningOutcomes replaces the learning outcome selection.
type SetLearningOutcomes struct{ Outcomes []string }

// SetProductType overwrites the single-select product type.
type SetProductType struct{ ProductType string }

// SetSpecialCategories replaces the special category selection.
type SetSpecialCategories struct{ Categories []string }

// SetSearchQuery overwrites the free-text search query.
type SetSearchQuery struct{ Query string }

// SetSortBy overwrites the sort order.
type SetSortBy struct{ Sort domain.SortKey }

// SetViewMode overwrites the listing view mode.
type SetViewMode struct{ Mode domain.ViewMode }

// SetMobileFiltersOpen toggles the transient mobile filter panel flag.
type SetMobileFiltersOpen struct{ Open bool }

// ClearFilters resets every field to its default except ViewMode and
// SearchQuery, which survive the reset.
type ClearFilters struct{}

// InitFromURL shallow-merges a parsed query-string patch over the current
// state. Dispatched exactly once per listing lifetime.
type InitFromURL struct{ Patch Patch }

func (SetCategories) isAction()        {}
func (ToggleCategory) isAction()       {}
func (SetFilter) isAction()            {}
func (SetPriceRange) isAction()        {}
func (SetNoPriceFilter) isAction()     {}
func (SetLearningOutcomes) isAction()  {}
func (SetProductType) isAction()       {}
func (SetSpecialCategories) isAction() {}
func (SetSearchQuery) isAction()       {}
func (SetSortBy) isAction()            {}
func (SetViewMode) isAction()          {}
func (SetMobileFiltersOpen) isAction() {}
func (ClearFilters) isAction()         {}
func (InitFromURL) isAction()          {}

// Reduce applies the action to the state and returns the successor.
// Deterministic, side-effect free, never panics on any accepted payload.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetCategories:
		s.SelectedCategories = dedupeByNormal(a.Categories)
	case ToggleCategory:
		s.SelectedCategories = toggleCategory(s.SelectedCategories, a.Category)
	case SetFilter:
		s.SelectedFilters = toggleGroupOption(s.SelectedFilters, a.Group, a.Option)
	case SetPriceRange:
		s.PriceRange = a.Range
	case SetNoPriceFilter:
		s.NoPriceFilter = a.Disabled
	case SetLearningOutcomes:
		s.LearningOutcomes = copyNonEmpty(a.Outcomes)
	case SetProductType:
		s.ProductType = strings.TrimSpace(a.ProductType)
	case SetSpecialCategories:
		s.SpecialCategories = copyNonEmpty(a.Categories)
	case SetSearchQuery:
		s.SearchQuery = a.Query
	case SetSortBy:
		s.SortBy = a.Sort
	case SetViewMode:
		s.ViewMode = a.Mode
	case SetMobileFiltersOpen:
		s.MobileFiltersOpen = a.Open
	case ClearFilters:
		cleared := NewState()
		cleared.ViewMode = s.ViewMode
		cleared.SearchQuery = s.SearchQuery
		s = cleared
	case InitFromURL:
		s = mergePatch(s, a.Patch)
	}
	return s
}

func mergePatch(s State, p Patch) State {
	if len(p.Categories) > 0 {
		s.SelectedCategories = dedupeByNormal(p.Categories)
	}
	if p.PriceRange != nil {
		s.PriceRange = *p.PriceRange
	}
	if p.NoPriceFilter != nil {
		s.NoPriceFilter = *p.NoPriceFilter
	}
	if p.SearchQuery != nil {
		s.SearchQuery = *p.SearchQuery
	}
	if p.SortBy != nil {
		s.SortBy = *p.SortBy
	}
	if p.ViewMode != nil {
		s.ViewMode = *p.ViewMode
	}
	if len(p.LearningOutcomes) > 0 {
		s.LearningOutcomes = copyNonEmpty(p.LearningOutcomes)
	}
	if len(p.SpecialCategories) > 0 {
		s.SpecialCategories = copyNonEmpty(p.SpecialCategories)
	}
	return s
}

func toggleCategory(selected []string, raw string) []string {
	slug := Normalize(raw)
	if slug == "" {
		return selected
	}
	result := make([]string, 0, len(selected)+1)
	removed := false
	for _, entry := range selected {
		if Normalize(entry) == slug {
			removed = true
			continue
		}
		result = append(result, entry)
	}
	if !removed {
		result = append(result, slug)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func toggleGroupOption(groups map[string][]string, group, option string) map[string][]string {
	group = strings.TrimSpace(group)
	option = strings.TrimSpace(option)
	if group == "" || option == "" {
		return groups
	}

	result := make(map[string][]string, len(groups)+1)
	for key, options := range groups {
		result[key] = append([]string(nil), options...)
	}

	options := result[group]
	kept := options[:0]
	found := false
	for _, existing := range options {
		if existing == option {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		kept = append(kept, option)
	}
	if len(kept) == 0 {
		delete(result, group)
	} else {
		result[group] = kept
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func dedupeByNormal(entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(entries))
	var result []string
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		key := Normalize(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func copyNonEmpty(entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
