package marketplace

import (
	"slices"
	"strings"
)

// ListingFilter narrows the project feed. Field names match the persisted
// front-end filter format.
type ListingFilter struct {
	Search    string  `json:"search,omitempty"`
	Category  string  `json:"category"`
	MinBudget float64 `json:"minBudget"`
	MaxBudget float64 `json:"maxBudget"`
}

// DefaultListingFilter matches every listing with a budget overlapping [0, 10000].
func DefaultListingFilter() ListingFilter {
	return ListingFilter{MaxBudget: 10000}
}

// Match reports whether l passes every criterion.
// Search is case-insensitive over title, description and skills; category is
// an exact skill or a substring of the description; the budget ranges overlap.
func (f ListingFilter) Match(l Listing) bool {
	if q := strings.ToLower(f.Search); q != "" {
		found := strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			slices.ContainsFunc(l.Skills, func(s string) bool { return strings.Contains(strings.ToLower(s), q) })
		if !found {
			return false
		}
	}
	if f.Category != "" && !slices.Contains(l.Skills, f.Category) && !strings.Contains(l.Description, f.Category) {
		return false
	}
	return l.Budget.Min <= f.MaxBudget && l.Budget.Max >= f.MinBudget
}

// FilterListings returns the listings matching f, preserving order.
func FilterListings(list []Listing, f ListingFilter) []Listing {
	out := make([]Listing, 0, len(list))
	for _, l := range list {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// ProviderFilter narrows the provider directory.
type ProviderFilter struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category"`
}

// Match searches name and skills case-insensitively; category is an exact skill.
func (f ProviderFilter) Match(p ProviderProfile) bool {
	if q := strings.ToLower(f.Search); q != "" {
		found := strings.Contains(strings.ToLower(p.Name), q) ||
			slices.ContainsFunc(p.Skills, func(s string) bool { return strings.Contains(strings.ToLower(s), q) })
		if !found {
			return false
		}
	}
	return f.Category == "" || slices.Contains(p.Skills, f.Category)
}

// FilterProviders returns the providers matching f, preserving order.
func FilterProviders(list []ProviderProfile, f ProviderFilter) []ProviderProfile {
	out := make([]ProviderProfile, 0, len(list))
	for _, p := range list {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
