// Package filter turns loosely-typed caller preferences into a canonical,
// strongly-typed filter set and a stable signature used as the pool key.
package filter

import (
	"crypto/sha256"
	"fmt"

	"github.com/whimapp/discovery-cli/internal/model"
)

// Category is the hard dimension of a query. It is never relaxed.
type Category string

const (
	CategoryFood         Category = "food"
	CategoryActivity     Category = "activity"
	CategorySomethingNew Category = "something_new"
)

// SocialContext describes who the user is going out with.
type SocialContext string

const (
	SocialUnset  SocialContext = ""
	SocialSolo   SocialContext = "solo"
	SocialPaired SocialContext = "paired"
	SocialGroup  SocialContext = "group"
)

// Budget is the user's spend band.
type Budget string

const (
	BudgetUnset Budget = ""
	BudgetLow   Budget = "low"
	BudgetMid   Budget = "mid"
	BudgetHigh  Budget = "high"
)

// TimeOfDay narrows results to places fitting a part of the day.
type TimeOfDay string

// The zero value means unconstrained, so an un-normalized Set behaves the
// same as one that passed through Normalize.
const (
	TimeAny       TimeOfDay = ""
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeNight     TimeOfDay = "night"
)

// Set is the canonical filter set. Produced only by Normalize; core logic
// never sees raw caller maps.
type Set struct {
	Category      Category      `json:"category"`
	Mood          int           `json:"mood"`           // 0–100
	Social        SocialContext `json:"social,omitempty"`
	Budget        Budget        `json:"budget,omitempty"`
	TimeOfDay     TimeOfDay     `json:"time_of_day"`
	DistanceRange int           `json:"distance_range"` // 0–100
	Origin        model.LatLng  `json:"origin"`
}

// Signature returns the stable hash identifying this canonical set. It is a
// pure function of the canonical fields: two raw inputs that normalize
// identically always share a signature, regardless of key order.
func (s Set) Signature() string {
	canonical := fmt.Sprintf(
		"budget=%s|category=%s|distance=%d|lat=%.5f|lng=%.5f|mood=%d|social=%s|time=%s",
		s.Budget, s.Category, s.DistanceRange,
		s.Origin.Lat, s.Origin.Lng, s.Mood, s.Social, s.TimeOfDay,
	)
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", sum)
}

// Warning flags a non-fatal normalization adjustment. Callers decide whether
// to surface these to the user.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}
