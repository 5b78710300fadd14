package resolve

import "github.com/whimapp/discovery-cli/internal/filter"

// SocialResolver resolves the social-context dimension.
type SocialResolver struct{}

var socialTypes = map[filter.SocialContext][]string{
	filter.SocialSolo: {
		"cafe", "museum", "park", "art_gallery", "bakery", "spa", "hiking_area",
	},
	filter.SocialPaired: {
		"restaurant", "movie_theater", "art_gallery", "aquarium", "spa", "bar",
		"performing_arts_theater", "ice_cream_shop",
	},
	filter.SocialGroup: {
		"bar", "bowling_alley", "karaoke", "amusement_park", "night_club",
		"restaurant", "meal_takeaway", "zoo", "park",
	},
}

// PreferredPlaceTypes returns types suited to the outing's social shape.
func (SocialResolver) PreferredPlaceTypes(s filter.SocialContext) []string {
	types := socialTypes[s]
	out := make([]string, len(types))
	copy(out, types)
	return out
}

// Weight reflects how much the social context should constrain results.
// Unset contributes nothing.
func (SocialResolver) Weight(s filter.SocialContext) float64 {
	switch s {
	case filter.SocialSolo:
		return 0.4
	case filter.SocialPaired:
		return 0.45
	case filter.SocialGroup:
		return 0.5
	default:
		return 0
	}
}

// RelaxationRank places social context second in the relaxation order.
func (SocialResolver) RelaxationRank(filter.SocialContext) int { return RankSocial }

// IsCompatible defers mood/social tension to the mood resolver; the social
// dimension itself conflicts with nothing.
func (SocialResolver) IsCompatible(filter.SocialContext, any) bool { return true }
