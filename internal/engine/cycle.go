package engine

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/pool"
	"github.com/whimapp/discovery-cli/internal/radius"
	"github.com/whimapp/discovery-cli/internal/relax"
	"github.com/whimapp/discovery-cli/internal/resilience"
	"github.com/whimapp/discovery-cli/pkg/mood"
	"github.com/whimapp/discovery-cli/pkg/places"
)

// runCycle drives one discovery cycle: search, score, admit, and on scarcity
// alternate spatial expansion with filter relaxation until a terminal state.
// It resumes from the pool's current radius and expansion count.
//
// The cycle runs detached from the caller's cancellation: an abandoned
// Discover call may still complete and populate the pool for future reuse.
func (e *Engine) runCycle(ctx context.Context, set *filter.Set, sig string, p *pool.Pool) error {
	ctx = context.WithoutCancel(ctx)

	ctrl := radius.NewController(e.cfg.Radius, p.RadiusMeters, p.ExpansionCount)
	relaxState := p.Relax
	searchRadius := ctrl.Begin()
	order := 0

	for !ctrl.Done() {
		candidates, err := e.search(ctx, set, sig, searchRadius, relaxState)
		if err != nil {
			ctrl.Fail()
			e.persist(p, ctrl, relaxState)
			return eris.Wrap(err, "engine: discovery cycle")
		}

		scored := e.scoreCandidates(ctx, set, relaxState, candidates, &order)
		admitted := p.Admit(scored)
		zap.L().Debug("candidates admitted",
			zap.Int("fetched", len(candidates)),
			zap.Int("admitted", admitted),
			zap.Int("available", p.Available()),
		)

		if ctrl.Observe(p.Available()) != radius.StateExpanding {
			break
		}

		// Alternate the two scarcity responses, spatial growth first, both
		// drawing on the same retry budget. Relaxation steps in when it is
		// its turn or when the radius has nowhere left to grow.
		relaxTurn := ctrl.Expansions()%2 == 1 || ctrl.AtMaxRadius()
		if relaxTurn {
			if next, _, ok := e.relaxer.Step(relaxState, set); ok {
				relaxState = next
				searchRadius = ctrl.ContinueRelaxed()
				continue
			}
		}
		searchRadius = ctrl.ExpandRadius()
	}

	e.persist(p, ctrl, relaxState)
	return nil
}

func (e *Engine) persist(p *pool.Pool, ctrl *radius.Controller, relaxState relax.State) {
	p.RadiusMeters = ctrl.Radius()
	p.ExpansionCount = ctrl.Expansions()
	p.Relax = relaxState
}

// search performs one upstream call at a fixed radius, going through the
// memoization cache when configured and retrying transient failures with
// backoff. Each attempt carries its own bounded timeout.
func (e *Engine) search(ctx context.Context, set *filter.Set, sig string, searchRadius float64, relaxState relax.State) ([]model.Candidate, error) {
	key := cacheKey(sig, searchRadius, relaxState)

	if e.cache != nil {
		cached, hit, err := e.cache.GetSearch(ctx, key)
		if err != nil {
			zap.L().Warn("search cache read failed", zap.Error(err))
		} else if hit {
			zap.L().Debug("search cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	req := e.buildRequest(set, searchRadius, relaxState)
	candidates, err := resilience.DoVal(ctx, e.cfg.Retry, func(ctx context.Context) ([]model.Candidate, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.UpstreamTimeout)
		defer cancel()
		return e.searcher.Search(callCtx, req)
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetSearch(ctx, key, candidates, e.cfg.CacheTTL); err != nil {
			zap.L().Warn("search cache write failed", zap.Error(err))
		}
	}
	return candidates, nil
}

func (e *Engine) buildRequest(set *filter.Set, searchRadius float64, relaxState relax.State) places.SearchRequest {
	req := places.SearchRequest{
		Origin:       set.Origin,
		RadiusMeters: searchRadius,
		PlaceTypes:   e.resolvers.PlaceTypes(set, relaxState.Active()),
	}

	if set.Budget != filter.BudgetUnset && !relaxState.BudgetRelaxed {
		min, max := e.resolvers.Budget.Band(set.Budget)
		req.MinPriceTier = &min
		req.MaxPriceTier = &max
	}
	if !relaxState.TimeRelaxed {
		req.OpenNow = e.resolvers.Time.OpenNowOnly(set.TimeOfDay)
	}
	return req
}

// scoreCandidates scores a search's yield, running sentiment analysis for
// candidates carrying review snippets with bounded concurrency. A sentiment
// failure degrades that candidate to the neutral mood score; it never fails
// the cycle.
func (e *Engine) scoreCandidates(ctx context.Context, set *filter.Set, relaxState relax.State, candidates []model.Candidate, order *int) []model.ScoredPlace {
	moods := make([]int, len(candidates))
	for i := range moods {
		moods[i] = mood.Neutral
	}

	if e.analyzer != nil {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.MoodConcurrency)
		for i, c := range candidates {
			if len(c.ReviewSnippets) == 0 {
				continue
			}
			i, c := i, c
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gCtx, e.cfg.UpstreamTimeout)
				defer cancel()
				score, err := e.analyzer.AnalyzeMood(callCtx, c.ReviewSnippets)
				if err != nil {
					zap.L().Debug("mood analysis failed, using neutral",
						zap.String("place_id", c.ID), zap.Error(err))
					return nil
				}
				moods[i] = score
				return nil
			})
		}
		_ = g.Wait()
	}

	window := relaxState.EffectiveMoodWindow()
	scored := make([]model.ScoredPlace, len(candidates))
	for i, c := range candidates {
		scored[i] = e.scorer.Score(c, set, window, moods[i], *order)
		*order++
	}
	return scored
}

// cacheKey identifies one upstream call: the query signature plus the radius
// and relaxation fingerprint that shaped the request.
func cacheKey(sig string, searchRadius float64, relaxState relax.State) string {
	return fmt.Sprintf("%s:r%.0f:x%d:w%d:t%t:s%t:b%t",
		sig, searchRadius, len(relaxState.Relaxed), relaxState.EffectiveMoodWindow(),
		relaxState.TimeRelaxed, relaxState.SocialRelaxed, relaxState.BudgetRelaxed,
	)
}
