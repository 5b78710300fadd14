// Package radius implements the search-radius state machine that drives
// spatial expansion when a search yields too few places.
package radius

import (
	"go.uber.org/zap"
)

// State is the controller's position in the expansion lifecycle.
type State string

const (
	// StateInitial is the constructed state, before the first search.
	StateInitial State = "INITIAL"
	// StateSearching means one upstream call at the current radius is due.
	StateSearching State = "SEARCHING"
	// StateExpanding means the last yield was short and retry budget remains.
	StateExpanding State = "EXPANDING"
	// StateComplete is terminal: the yield met the minimum.
	StateComplete State = "COMPLETE"
	// StateLimitReached is terminal: retries exhausted, short yield. The
	// engine returns whatever was found; this is success with caveats.
	StateLimitReached State = "LIMIT_REACHED"
	// StateError is terminal: the upstream failed after retries. Scarcity
	// never enters this state.
	StateError State = "ERROR"
)

// Config bounds the expansion policy.
type Config struct {
	MinResults      int
	MaxExpansions   int
	GrowthFactor    float64
	MaxRadiusMeters float64
}

// DefaultConfig returns the expansion policy defaults.
func DefaultConfig() Config {
	return Config{
		MinResults:      4,
		MaxExpansions:   3,
		GrowthFactor:    2.0,
		MaxRadiusMeters: 20000,
	}
}

// Controller is the per-discovery-cycle state machine. It is not safe for
// concurrent use; the engine holds it inside the signature's single-flight.
type Controller struct {
	cfg        Config
	state      State
	radius     float64
	expansions int
	lastYield  int
}

// NewController creates a controller at the given starting radius. Prior
// expansions carry over when a pool's discovery cycle resumes rather than
// restarting from INITIAL radius.
func NewController(cfg Config, startRadius float64, priorExpansions int) *Controller {
	if cfg.MinResults <= 0 {
		cfg.MinResults = DefaultConfig().MinResults
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = DefaultConfig().MaxExpansions
	}
	if cfg.GrowthFactor <= 1 {
		cfg.GrowthFactor = DefaultConfig().GrowthFactor
	}
	if cfg.MaxRadiusMeters <= 0 {
		cfg.MaxRadiusMeters = DefaultConfig().MaxRadiusMeters
	}
	return &Controller{
		cfg:        cfg,
		state:      StateInitial,
		radius:     startRadius,
		expansions: priorExpansions,
	}
}

// Begin moves INITIAL → SEARCHING and returns the radius for the first call.
func (c *Controller) Begin() float64 {
	c.transition(StateSearching)
	return c.radius
}

// Observe feeds the yield of the last search back in. SEARCHING moves to
// COMPLETE on a sufficient yield, EXPANDING while retry budget remains, and
// LIMIT_REACHED once expansions are exhausted.
func (c *Controller) Observe(yield int) State {
	c.lastYield = yield
	switch {
	case yield >= c.cfg.MinResults:
		c.transition(StateComplete)
	case c.expansions < c.cfg.MaxExpansions:
		c.transition(StateExpanding)
	default:
		c.transition(StateLimitReached)
	}
	return c.state
}

// ExpandRadius spends one retry on spatial growth: radius is multiplied by
// the growth factor, capped at the maximum, and the controller re-enters
// SEARCHING.
func (c *Controller) ExpandRadius() float64 {
	c.expansions++
	c.radius *= c.cfg.GrowthFactor
	if c.radius > c.cfg.MaxRadiusMeters {
		c.radius = c.cfg.MaxRadiusMeters
	}
	c.transition(StateSearching)
	return c.radius
}

// ContinueRelaxed spends one retry on filter relaxation: the radius holds and
// the controller re-enters SEARCHING. Relaxation and spatial growth draw on
// the same bounded retry budget.
func (c *Controller) ContinueRelaxed() float64 {
	c.expansions++
	c.transition(StateSearching)
	return c.radius
}

// Fail moves to the terminal ERROR state after an unrecoverable upstream
// failure.
func (c *Controller) Fail() {
	c.transition(StateError)
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Radius returns the current search radius in meters.
func (c *Controller) Radius() float64 { return c.radius }

// Expansions returns the retries spent so far.
func (c *Controller) Expansions() int { return c.expansions }

// Done reports whether the controller is in a terminal state.
func (c *Controller) Done() bool {
	switch c.state {
	case StateComplete, StateLimitReached, StateError:
		return true
	}
	return false
}

// AtMaxRadius reports whether further spatial growth is impossible.
func (c *Controller) AtMaxRadius() bool {
	return c.radius >= c.cfg.MaxRadiusMeters
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	zap.L().Info("radius controller transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Float64("radius_m", c.radius),
		zap.Int("expansion_count", c.expansions),
		zap.Int("yield_count", c.lastYield),
	)
}
