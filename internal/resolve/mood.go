package resolve

import (
	"math"

	"github.com/whimapp/discovery-cli/internal/filter"
)

// DefaultMoodTolerance is the |candidate-target| distance beyond which mood
// alignment saturates to zero, on the 0–100 scale.
const DefaultMoodTolerance = 30

// MoodResolver resolves the mood dimension. Relaxation widens Tolerance
// rather than removing the dimension.
type MoodResolver struct {
	Tolerance int
}

// PreferredPlaceTypes biases search toward place types matching the mood band.
func (MoodResolver) PreferredPlaceTypes(mood int) []string {
	switch {
	case mood <= 33:
		return []string{
			"spa", "cafe", "park", "bakery", "museum", "art_gallery", "hiking_area",
		}
	case mood <= 66:
		return []string{
			"restaurant", "cafe", "museum", "movie_theater", "tourist_attraction",
			"aquarium", "zoo", "ice_cream_shop", "bakery", "art_gallery", "park",
		}
	default:
		return []string{
			"bar", "night_club", "amusement_park", "bowling_alley", "karaoke",
			"restaurant", "performing_arts_theater", "meal_takeaway",
		}
	}
}

// Weight grows as the mood moves away from neutral: an extreme mood is a
// stronger constraint than an indifferent one.
func (MoodResolver) Weight(mood int) float64 {
	return 0.2 + 0.6*math.Abs(float64(mood)-50)/50
}

// RelaxationRank places mood third in the relaxation order.
func (MoodResolver) RelaxationRank(int) int { return RankMood }

// Alignment returns closeness of a candidate's mood score to the target on
// [0,1]. Symmetric, monotonically decreasing in |candidate-target|, and zero
// beyond the tolerance window.
func (r MoodResolver) Alignment(candidate, target int) float64 {
	return r.AlignmentWindow(candidate, target, r.Tolerance)
}

// AlignmentWindow is Alignment with an explicit window, used once relaxation
// has widened the tolerance.
func (MoodResolver) AlignmentWindow(candidate, target, window int) float64 {
	if window <= 0 {
		window = DefaultMoodTolerance
	}
	d := math.Abs(float64(candidate - target))
	if d >= float64(window) {
		return 0
	}
	return 1 - d/float64(window)
}

// IsCompatible flags mood/social pairings that pull against each other:
// a high-energy mood with a solo outing, or a very low-key mood with a group.
func (MoodResolver) IsCompatible(mood int, social filter.SocialContext) bool {
	if mood >= 80 && social == filter.SocialSolo {
		return false
	}
	if mood <= 20 && social == filter.SocialGroup {
		return false
	}
	return true
}
