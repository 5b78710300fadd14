// Package scoring computes the per-candidate score breakdown and the stable
// ranking used by the result pool.
package scoring

import (
	"math"
	"sort"

	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/resolve"
)

const (
	ratingWeight  = 0.4
	reviewsWeight = 0.2
	moodWeight    = 0.2
	categoryBonus = 0.1
	budgetBonus   = 0.1

	// Fixed reference maxima used to normalize raw inputs.
	ratingMax       = 5.0
	reviewReference = 500.0
)

// Engine scores candidates against a canonical filter set. Scoring is a pure
// function of (candidate, filters, mood window); a candidate is scored once
// and the result cached in the pool.
type Engine struct {
	resolvers *resolve.Resolvers
}

// New creates a scoring engine backed by the given resolvers.
func New(r *resolve.Resolvers) *Engine {
	return &Engine{resolvers: r}
}

// Score computes the breakdown for one candidate. moodWindow is the current
// alignment tolerance (widened by relaxation); candidateMood is the
// candidate's inferred mood score, or a neutral 50 when no sentiment data is
// available. order is the candidate's upstream discovery position, kept as
// the final tie-break.
func (e *Engine) Score(c model.Candidate, set *filter.Set, moodWindow, candidateMood, order int) model.ScoredPlace {
	quality := e.qualityScore(c)
	mood := e.resolvers.Mood.AlignmentWindow(candidateMood, set.Mood, moodWindow)
	relevance := e.relevanceScore(c, set)

	return model.ScoredPlace{
		Candidate:          c,
		QualityScore:       quality,
		MoodAlignmentScore: mood,
		RelevanceScore:     relevance,
		CombinedScore:      quality + moodWeight*mood + relevance,
		DiscoveryOrder:     order,
	}
}

// qualityScore combines rating and log-scaled review count, each normalized
// against fixed reference maxima and clamped to [0,1] before weighting.
func (e *Engine) qualityScore(c model.Candidate) float64 {
	var rating float64
	if c.Rating != nil {
		rating = clamp01(*c.Rating / ratingMax)
	}

	var reviews float64
	if c.ReviewCount > 0 {
		reviews = clamp01(math.Log1p(float64(c.ReviewCount)) / math.Log1p(reviewReference))
	}

	return ratingWeight*rating + reviewsWeight*reviews
}

// relevanceScore is the bonus layer: category type intersection and budget
// band fit.
func (e *Engine) relevanceScore(c model.Candidate, set *filter.Set) float64 {
	var score float64

	preferred := e.resolvers.Category.PreferredPlaceTypes(set.Category)
	allowed := make(map[string]bool, len(preferred))
	for _, t := range preferred {
		allowed[t] = true
	}
	for _, t := range c.Types {
		if allowed[t] {
			score += categoryBonus
			break
		}
	}

	if set.Budget != filter.BudgetUnset && c.PriceTier != nil &&
		e.resolvers.Budget.InBand(set.Budget, c.PriceTier) {
		score += budgetBonus
	}

	return score
}

// Rank sorts scored places best-first, in place. Ties on CombinedScore break
// on raw rating, then review count, then discovery order, so repeated calls
// over identical upstream data rank identically.
func Rank(places []model.ScoredPlace) {
	sort.SliceStable(places, func(i, j int) bool {
		a, b := places[i], places[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		ar, br := ratingOf(a), ratingOf(b)
		if ar != br {
			return ar > br
		}
		if a.ReviewCount != b.ReviewCount {
			return a.ReviewCount > b.ReviewCount
		}
		return a.DiscoveryOrder < b.DiscoveryOrder
	})
}

func ratingOf(p model.ScoredPlace) float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
