// Package relax implements progressive filter relaxation: when a search
// yields too few places, soft dimensions are loosened one at a time, in a
// fixed priority order, least strict first. Category is never relaxed.
package relax

import (
	"go.uber.org/zap"

	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/resolve"
)

// moodWindowStep is how much one relaxation step widens the mood tolerance.
const moodWindowStep = 25

// State tracks how far relaxation has progressed for one query signature.
// The zero value means nothing has been relaxed.
type State struct {
	// TimeRelaxed drops the time-of-day constraint.
	TimeRelaxed bool
	// SocialRelaxed drops the social-context constraint.
	SocialRelaxed bool
	// MoodWindow is the current alignment tolerance; 0 means the default.
	// Mood is widened, never removed.
	MoodWindow int
	// BudgetRelaxed drops the budget constraint.
	BudgetRelaxed bool

	// Relaxed lists the dimensions loosened so far, in relaxation order,
	// surfaced to the caller in the result metadata.
	Relaxed []string
}

// EffectiveMoodWindow returns the alignment window scoring should use.
func (s State) EffectiveMoodWindow() int {
	if s.MoodWindow == 0 {
		return resolve.DefaultMoodTolerance
	}
	return s.MoodWindow
}

// Active reports which soft dimensions still constrain the search.
func (s State) Active() resolve.ActiveSoft {
	return resolve.ActiveSoft{
		Time:   !s.TimeRelaxed,
		Social: !s.SocialRelaxed,
		Budget: !s.BudgetRelaxed,
	}
}

// Relaxer loosens one dimension per call, skipping dimensions the filter set
// never constrained.
type Relaxer struct {
	resolvers *resolve.Resolvers
}

// New creates a Relaxer over the given resolvers.
func New(r *resolve.Resolvers) *Relaxer {
	return &Relaxer{resolvers: r}
}

// maxMoodWidenings bounds how often the mood window can grow before the
// relaxer moves on to budget.
const maxMoodWidenings = 2

// Step loosens exactly one dimension and returns the updated state, the name
// of the relaxed dimension, and whether any step was possible. Dimensions the
// set leaves unset are skipped: relaxing them would change nothing.
func (r *Relaxer) Step(s State, set *filter.Set) (State, string, bool) {
	switch {
	case !s.TimeRelaxed && set.TimeOfDay != filter.TimeAny:
		s.TimeRelaxed = true
		s.Relaxed = append(s.Relaxed, "timeOfDay")
		return logStep(s, "timeOfDay")

	case !s.SocialRelaxed && set.Social != filter.SocialUnset:
		s.SocialRelaxed = true
		s.Relaxed = append(s.Relaxed, "socialContext")
		return logStep(s, "socialContext")

	case s.MoodWindow < resolve.DefaultMoodTolerance+maxMoodWidenings*moodWindowStep:
		s.MoodWindow = s.EffectiveMoodWindow() + moodWindowStep
		if !contains(s.Relaxed, "mood") {
			s.Relaxed = append(s.Relaxed, "mood")
		}
		return logStep(s, "mood")

	case !s.BudgetRelaxed && set.Budget != filter.BudgetUnset:
		s.BudgetRelaxed = true
		s.Relaxed = append(s.Relaxed, "budget")
		return logStep(s, "budget")
	}

	return s, "", false
}

func logStep(s State, dimension string) (State, string, bool) {
	zap.L().Info("filter relaxed",
		zap.String("dimension", dimension),
		zap.Int("mood_window", s.EffectiveMoodWindow()),
		zap.Strings("relaxed_so_far", s.Relaxed),
	)
	return s, dimension, true
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}
