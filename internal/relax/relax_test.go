package relax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/resolve"
)

func fullSet() *filter.Set {
	return &filter.Set{
		Category:  filter.CategoryFood,
		Mood:      80,
		Social:    filter.SocialGroup,
		Budget:    filter.BudgetHigh,
		TimeOfDay: filter.TimeNight,
	}
}

func TestStep_FixedPriorityOrder(t *testing.T) {
	r := New(resolve.New())
	set := fullSet()

	var s State
	var dims []string
	for {
		next, dim, ok := r.Step(s, set)
		if !ok {
			break
		}
		s = next
		dims = append(dims, dim)
	}

	assert.Equal(t, []string{
		"timeOfDay", "socialContext", "mood", "mood", "budget",
	}, dims)
	assert.Equal(t, []string{"timeOfDay", "socialContext", "mood", "budget"}, s.Relaxed)
}

func TestStep_OneDimensionPerCall(t *testing.T) {
	r := New(resolve.New())
	set := fullSet()

	s, dim, ok := r.Step(State{}, set)
	require.True(t, ok)
	assert.Equal(t, "timeOfDay", dim)
	assert.True(t, s.TimeRelaxed)
	assert.False(t, s.SocialRelaxed)
	assert.False(t, s.BudgetRelaxed)
	assert.Zero(t, s.MoodWindow)
}

func TestStep_CategoryNeverRelaxed(t *testing.T) {
	r := New(resolve.New())
	set := fullSet()

	s := State{}
	for {
		next, _, ok := r.Step(s, set)
		if !ok {
			break
		}
		s = next
	}
	assert.NotContains(t, s.Relaxed, "category")
}

func TestStep_SkipsUnsetDimensions(t *testing.T) {
	r := New(resolve.New())
	set := &filter.Set{
		Category:  filter.CategoryActivity,
		Mood:      50,
		TimeOfDay: filter.TimeAny,
	}

	// Nothing but mood is constrained, so mood widens immediately.
	s, dim, ok := r.Step(State{}, set)
	require.True(t, ok)
	assert.Equal(t, "mood", dim)
	assert.Equal(t, resolve.DefaultMoodTolerance+25, s.MoodWindow)
}

func TestStep_ZeroValueTimeOfDayIsUnconstrained(t *testing.T) {
	r := New(resolve.New())

	// A Set built by hand, not via Normalize, leaves TimeOfDay at its zero
	// value. There is no time constraint to relax, so the first step must
	// move past it.
	set := &filter.Set{Category: filter.CategoryFood, Mood: 50}

	s, dim, ok := r.Step(State{}, set)
	require.True(t, ok)
	assert.Equal(t, "mood", dim)
	assert.NotContains(t, s.Relaxed, "timeOfDay")
}

func TestStep_MoodWidensNotRemoved(t *testing.T) {
	r := New(resolve.New())
	set := fullSet()

	s := State{TimeRelaxed: true, SocialRelaxed: true}
	s, dim, ok := r.Step(s, set)
	require.True(t, ok)
	assert.Equal(t, "mood", dim)
	assert.Greater(t, s.EffectiveMoodWindow(), resolve.DefaultMoodTolerance)

	// Mood stays a constraint: Active never reports it gone.
	active := s.Active()
	assert.False(t, active.Time)
	assert.False(t, active.Social)
	assert.True(t, active.Budget)
}

func TestStep_ExhaustionReturnsFalse(t *testing.T) {
	r := New(resolve.New())
	set := fullSet()

	s := State{}
	steps := 0
	for {
		next, _, ok := r.Step(s, set)
		if !ok {
			break
		}
		s = next
		steps++
		require.Less(t, steps, 20, "relaxer must terminate")
	}

	_, _, ok := r.Step(s, set)
	assert.False(t, ok)
}

func TestState_MoodListedOnceDespiteMultipleWidenings(t *testing.T) {
	r := New(resolve.New())
	set := &filter.Set{Category: filter.CategoryFood, Mood: 50}

	s := State{}
	for i := 0; i < 2; i++ {
		next, dim, ok := r.Step(s, set)
		require.True(t, ok)
		require.Equal(t, "mood", dim)
		s = next
	}
	assert.Equal(t, []string{"mood"}, s.Relaxed)
}
