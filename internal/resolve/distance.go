package resolve

import "math"

// DistanceResolver maps the 0–100 distanceRange percentage onto a meters
// band. The mapping is monotonic and deliberately non-linear: the bottom of
// the scale moves in fine near-field steps while the top sweeps out to the
// full search cap.
type DistanceResolver struct {
	MinMeters float64
	MaxMeters float64
}

// curveExponent shapes the percentage-to-meters curve. Values above 1 keep
// small percentages in a narrow near-field band.
const curveExponent = 2.0

// Meters returns the search radius for a distanceRange percentage, clamped
// to [MinMeters, MaxMeters].
func (r DistanceResolver) Meters(distanceRange int) float64 {
	if distanceRange < 0 {
		distanceRange = 0
	}
	if distanceRange > 100 {
		distanceRange = 100
	}
	frac := math.Pow(float64(distanceRange)/100, curveExponent)
	return r.MinMeters + (r.MaxMeters-r.MinMeters)*frac
}
