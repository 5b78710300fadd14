// Package resolve maps each soft preference dimension to place-type sets,
// strictness weights, and compatibility rules. Relaxation order is derived
// from the weights: the least strict dimension is loosened first.
package resolve

import (
	"sort"

	"github.com/whimapp/discovery-cli/internal/filter"
)

// Relaxation ranks, least strict first. Category has no rank: it is the hard
// dimension and is never relaxed.
const (
	RankTimeOfDay = 1
	RankSocial    = 2
	RankMood      = 3
	RankBudget    = 4
)

// Resolvers bundles the per-dimension resolvers used by the engine.
type Resolvers struct {
	Category CategoryResolver
	Mood     MoodResolver
	Social   SocialResolver
	Budget   BudgetResolver
	Time     TimeResolver
	Distance DistanceResolver
}

// New returns resolvers with default tuning.
func New() *Resolvers {
	return &Resolvers{
		Mood:     MoodResolver{Tolerance: DefaultMoodTolerance},
		Distance: DistanceResolver{MinMeters: 250, MaxMeters: 20000},
	}
}

// ActiveSoft lists which soft dimensions constrain the given set, excluding
// any the caller has already relaxed.
type ActiveSoft struct {
	Time   bool
	Social bool
	Budget bool
}

// PlaceTypes resolves the place types for an upstream search. Category types
// are the base; active soft dimensions narrow them to the intersection with
// their own preferred types when that intersection is non-empty. Relaxing a
// dimension therefore widens the searched type set.
func (r *Resolvers) PlaceTypes(set *filter.Set, active ActiveSoft) []string {
	types := r.Category.PreferredPlaceTypes(set.Category)

	narrow := func(preferred []string) {
		if len(preferred) == 0 {
			return
		}
		allowed := make(map[string]bool, len(preferred))
		for _, t := range preferred {
			allowed[t] = true
		}
		var kept []string
		for _, t := range types {
			if allowed[t] {
				kept = append(kept, t)
			}
		}
		if len(kept) > 0 {
			types = kept
		}
	}

	if active.Time && set.TimeOfDay != filter.TimeAny {
		narrow(r.Time.PreferredPlaceTypes(set.TimeOfDay))
	}
	if active.Social && set.Social != filter.SocialUnset {
		narrow(r.Social.PreferredPlaceTypes(set.Social))
	}
	narrow(r.Mood.PreferredPlaceTypes(set.Mood))

	sort.Strings(types)
	return types
}

// Compatibility consults the per-dimension compatibility rules and returns a
// human-readable note for each soft mismatch. Mismatches are advisory: they
// never reject a filter set.
func (r *Resolvers) Compatibility(set *filter.Set) []string {
	var notes []string
	if !r.Mood.IsCompatible(set.Mood, set.Social) {
		notes = append(notes, "mood and social context pull in opposite directions")
	}
	if !r.Budget.IsCompatible(set.Budget, set.Category) {
		notes = append(notes, "budget is unusually tight for this category")
	}
	return notes
}
