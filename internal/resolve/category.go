package resolve

import "github.com/whimapp/discovery-cli/internal/filter"

// CategoryResolver resolves the hard category dimension. Its weight is always
// 1.0 and it is never relaxed.
type CategoryResolver struct{}

var categoryTypes = map[filter.Category][]string{
	filter.CategoryFood: {
		"restaurant", "cafe", "bakery", "bar", "meal_takeaway", "ice_cream_shop",
	},
	filter.CategoryActivity: {
		"park", "museum", "tourist_attraction", "bowling_alley", "movie_theater",
		"amusement_park", "hiking_area",
	},
	filter.CategorySomethingNew: {
		"art_gallery", "night_club", "aquarium", "zoo", "spa", "karaoke",
		"performing_arts_theater",
	},
}

// PreferredPlaceTypes returns the place types searched for a category.
func (CategoryResolver) PreferredPlaceTypes(c filter.Category) []string {
	types := categoryTypes[c]
	out := make([]string, len(types))
	copy(out, types)
	return out
}

// Weight is 1.0 for every category value.
func (CategoryResolver) Weight(filter.Category) float64 { return 1.0 }

// IsCompatible is true for every pairing: category constrains, it is not
// constrained.
func (CategoryResolver) IsCompatible(filter.Category, any) bool { return true }
