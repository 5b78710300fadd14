package radius

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_CompleteOnSufficientYield(t *testing.T) {
	c := NewController(DefaultConfig(), 1000, 0)
	assert.Equal(t, StateInitial, c.State())

	r := c.Begin()
	assert.InDelta(t, 1000, r, 0.001)
	assert.Equal(t, StateSearching, c.State())

	assert.Equal(t, StateComplete, c.Observe(4))
	assert.True(t, c.Done())
	assert.Zero(t, c.Expansions())
}

func TestController_ExpandThenComplete(t *testing.T) {
	c := NewController(DefaultConfig(), 1000, 0)
	c.Begin()

	require.Equal(t, StateExpanding, c.Observe(2))
	r := c.ExpandRadius()
	assert.InDelta(t, 2000, r, 0.001)
	assert.Equal(t, StateSearching, c.State())
	assert.Equal(t, 1, c.Expansions())

	assert.Equal(t, StateComplete, c.Observe(6))
	assert.Equal(t, 1, c.Expansions())
}

func TestController_LimitReachedAfterMaxExpansions(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg, 1000, 0)
	c.Begin()

	for i := 0; i < cfg.MaxExpansions; i++ {
		require.Equal(t, StateExpanding, c.Observe(0), "retry %d", i)
		c.ExpandRadius()
	}
	assert.Equal(t, StateLimitReached, c.Observe(0))
	assert.Equal(t, cfg.MaxExpansions, c.Expansions())
	assert.True(t, c.Done())
}

func TestController_RadiusCapped(t *testing.T) {
	cfg := Config{MinResults: 4, MaxExpansions: 10, GrowthFactor: 2.0, MaxRadiusMeters: 3000}
	c := NewController(cfg, 1000, 0)
	c.Begin()

	c.Observe(0)
	assert.InDelta(t, 2000, c.ExpandRadius(), 0.001)
	c.Observe(0)
	assert.InDelta(t, 3000, c.ExpandRadius(), 0.001)
	c.Observe(0)
	assert.InDelta(t, 3000, c.ExpandRadius(), 0.001)
	assert.True(t, c.AtMaxRadius())
}

func TestController_RelaxationSharesRetryBudget(t *testing.T) {
	c := NewController(DefaultConfig(), 1000, 0)
	c.Begin()

	require.Equal(t, StateExpanding, c.Observe(1))
	r := c.ContinueRelaxed()
	assert.InDelta(t, 1000, r, 0.001, "relaxation cycle holds the radius")
	assert.Equal(t, 1, c.Expansions())

	require.Equal(t, StateExpanding, c.Observe(1))
	c.ExpandRadius()
	require.Equal(t, StateExpanding, c.Observe(1))
	c.ContinueRelaxed()

	// Budget of 3 spent across both mechanisms.
	assert.Equal(t, StateLimitReached, c.Observe(1))
}

func TestController_ResumesPriorExpansionState(t *testing.T) {
	c := NewController(DefaultConfig(), 4000, 2)
	c.Begin()

	require.Equal(t, StateExpanding, c.Observe(0))
	c.ExpandRadius()
	assert.Equal(t, StateLimitReached, c.Observe(0))
	assert.Equal(t, 3, c.Expansions())
}

func TestController_ErrorOnlyOnFailure(t *testing.T) {
	c := NewController(DefaultConfig(), 1000, 0)
	c.Begin()
	c.Fail()
	assert.Equal(t, StateError, c.State())
	assert.True(t, c.Done())
}

func TestController_ScarcityNeverErrors(t *testing.T) {
	c := NewController(DefaultConfig(), 1000, 0)
	c.Begin()
	for !c.Done() {
		if c.Observe(0) == StateExpanding {
			c.ExpandRadius()
		}
	}
	assert.Equal(t, StateLimitReached, c.State())
}
