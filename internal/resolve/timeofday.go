package resolve

import "github.com/whimapp/discovery-cli/internal/filter"

// TimeResolver resolves the time-of-day dimension, the loosest constraint.
type TimeResolver struct{}

var timeTypes = map[filter.TimeOfDay][]string{
	filter.TimeMorning: {
		"cafe", "bakery", "park", "hiking_area", "museum",
	},
	filter.TimeAfternoon: {
		"museum", "park", "tourist_attraction", "art_gallery", "aquarium", "zoo",
		"cafe", "ice_cream_shop", "bowling_alley", "amusement_park", "restaurant",
		"hiking_area", "spa",
	},
	filter.TimeNight: {
		"restaurant", "bar", "night_club", "movie_theater", "bowling_alley",
		"karaoke", "performing_arts_theater", "meal_takeaway",
	},
}

// PreferredPlaceTypes returns types suited to the requested part of day.
// TimeAny imposes nothing.
func (TimeResolver) PreferredPlaceTypes(t filter.TimeOfDay) []string {
	types := timeTypes[t]
	out := make([]string, len(types))
	copy(out, types)
	return out
}

// OpenNowOnly reports whether the search should restrict to places open at
// query time. Only explicit non-any times ask for it.
func (TimeResolver) OpenNowOnly(t filter.TimeOfDay) bool {
	return t != filter.TimeAny
}

// Weight makes time of day the loosest constraint, relaxed first.
func (TimeResolver) Weight(t filter.TimeOfDay) float64 {
	if t == filter.TimeAny {
		return 0
	}
	return 0.3
}

// RelaxationRank places time of day first in the relaxation order.
func (TimeResolver) RelaxationRank(filter.TimeOfDay) int { return RankTimeOfDay }

// IsCompatible conflicts with nothing.
func (TimeResolver) IsCompatible(filter.TimeOfDay, any) bool { return true }
