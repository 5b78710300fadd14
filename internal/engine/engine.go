// Package engine wires the discovery components into the public entry
// points: Discover, NextBatch, and Reset.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/whimapp/discovery-cli/internal/ads"
	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/pool"
	"github.com/whimapp/discovery-cli/internal/radius"
	"github.com/whimapp/discovery-cli/internal/relax"
	"github.com/whimapp/discovery-cli/internal/resilience"
	"github.com/whimapp/discovery-cli/internal/resolve"
	"github.com/whimapp/discovery-cli/internal/scoring"
	"github.com/whimapp/discovery-cli/pkg/mood"
	"github.com/whimapp/discovery-cli/pkg/places"
)

// SearchCache is the optional memoization capability. The engine is fully
// correct with a nil cache; a hit merely skips one upstream call.
type SearchCache interface {
	GetSearch(ctx context.Context, key string) ([]model.Candidate, bool, error)
	SetSearch(ctx context.Context, key string, candidates []model.Candidate, ttl time.Duration) error
}

// Config tunes the discovery engine.
type Config struct {
	// BatchSize is the organic batch size. An advertised place may extend a
	// batch by one.
	BatchSize int

	Radius radius.Config
	Retry  resilience.RetryConfig

	// UpstreamTimeout bounds each upstream call. A timeout is an upstream
	// failure, never zero yield.
	UpstreamTimeout time.Duration

	// MoodConcurrency bounds parallel sentiment calls per search.
	MoodConcurrency int

	CacheTTL time.Duration
	PoolTTL  time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       4,
		Radius:          radius.DefaultConfig(),
		Retry:           resilience.DefaultRetryConfig(),
		UpstreamTimeout: 10 * time.Second,
		MoodConcurrency: 4,
		CacheTTL:        15 * time.Minute,
		PoolTTL:         pool.DefaultTTL,
	}
}

// Engine is the discovery orchestrator. Construct once per process and share;
// all state lives in the pool manager, keyed by query signature.
type Engine struct {
	cfg       Config
	searcher  places.Searcher
	analyzer  mood.Analyzer // optional
	adSource  ads.Source    // optional
	cache     SearchCache   // optional
	resolvers *resolve.Resolvers
	relaxer   *relax.Relaxer
	scorer    *scoring.Engine
	pools     *pool.Manager

	// flight collapses concurrent discovery cycles for the same signature
	// into a single upstream call chain.
	flight singleflight.Group
}

// Option configures the engine's optional collaborators.
type Option func(*Engine)

// WithMoodAnalyzer enables sentiment-based mood scoring.
func WithMoodAnalyzer(a mood.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithAdSource enables advertised-place insertion.
func WithAdSource(s ads.Source) Option {
	return func(e *Engine) { e.adSource = s }
}

// WithSearchCache enables upstream-response memoization.
func WithSearchCache(c SearchCache) Option {
	return func(e *Engine) { e.cache = c }
}

// New creates a discovery engine over the given place-search capability.
func New(cfg Config, searcher places.Searcher, opts ...Option) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.Radius.MinResults <= 0 {
		cfg.Radius.MinResults = radius.DefaultConfig().MinResults
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultConfig().UpstreamTimeout
	}
	if cfg.MoodConcurrency <= 0 {
		cfg.MoodConcurrency = DefaultConfig().MoodConcurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	resolvers := resolve.New()
	e := &Engine{
		cfg:       cfg,
		searcher:  searcher,
		resolvers: resolvers,
		relaxer:   relax.New(resolvers),
		scorer:    scoring.New(resolvers),
		pools:     pool.NewManager(cfg.PoolTTL),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Discover normalizes the raw filters, runs the expansion/relaxation loop if
// the signature has no serviceable pool, and returns the first batch.
// Normalization warnings are returned alongside the result.
func (e *Engine) Discover(ctx context.Context, raw map[string]any) (*model.DiscoveryResult, []filter.Warning, error) {
	set, warnings, err := e.normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.serve(ctx, set)
	return res, warnings, err
}

// normalize wraps filter.Normalize and appends cross-dimension compatibility
// notes as warnings. Incompatible combinations still run: the caller asked
// for them, they just tend to yield less.
func (e *Engine) normalize(raw map[string]any) (*filter.Set, []filter.Warning, error) {
	set, warnings, err := filter.Normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	for _, note := range e.resolvers.Compatibility(set) {
		warnings = append(warnings, filter.Warning{Field: "compatibility", Message: note})
	}
	return set, warnings, nil
}

// NextBatch returns the next disjoint batch for the same filters. When the
// pool runs low it re-enters the discovery loop at the pool's current radius
// and expansion state, not from INITIAL.
func (e *Engine) NextBatch(ctx context.Context, raw map[string]any) (*model.DiscoveryResult, []filter.Warning, error) {
	set, warnings, err := e.normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.serve(ctx, set)
	return res, warnings, err
}

// Reset discards the pool for the filters' signature, forcing a fresh
// INITIAL discovery next time.
func (e *Engine) Reset(raw map[string]any) error {
	set, _, err := filter.Normalize(raw)
	if err != nil {
		return err
	}
	e.pools.Reset(set.Signature())
	return nil
}

// serve is the common path behind Discover and NextBatch: refresh the pool
// if it cannot fill a batch, then hand out the next batch.
func (e *Engine) serve(ctx context.Context, set *filter.Set) (*model.DiscoveryResult, error) {
	sig := set.Signature()
	p := e.pools.GetOrCreate(sig, e.resolvers.Distance.Meters(set.DistanceRange))

	if p.Available() < e.cfg.BatchSize && !ctxDone(ctx) {
		// Concurrent callers for the same signature await one cycle instead
		// of issuing duplicate upstream calls.
		_, err, _ := e.flight.Do(sig, func() (any, error) {
			if p.Available() >= e.cfg.BatchSize {
				return nil, nil
			}
			return nil, e.runCycle(ctx, set, sig, p)
		})
		if err != nil {
			return e.errorResult(sig, p), err
		}
	}

	// A short batch means the pool is drained: the cycle above already spent
	// its expansion budget, so there is nothing more to find.
	batch, short := p.TakeBatch(e.cfg.BatchSize)

	state := model.LoadingComplete
	if short && len(batch) < e.cfg.Radius.MinResults {
		state = model.LoadingLimitReached
	}

	if e.adSource != nil {
		eligible := e.adSource.Eligible(set.Origin, p.RadiusMeters, set.Category)
		batch = p.InsertAdvertised(batch, eligible)
	}

	return &model.DiscoveryResult{
		SessionID: uuid.NewString(),
		Signature: sig,
		Places:    batch,
		State:     state,
		Expansion: model.ExpansionMeta{
			RadiusMeters:   p.RadiusMeters,
			ExpansionCount: p.ExpansionCount,
			RelaxedFilters: p.Relax.Relaxed,
		},
	}, nil
}

func (e *Engine) errorResult(sig string, p *pool.Pool) *model.DiscoveryResult {
	return &model.DiscoveryResult{
		SessionID: uuid.NewString(),
		Signature: sig,
		State:     model.LoadingError,
		Expansion: model.ExpansionMeta{
			RadiusMeters:   p.RadiusMeters,
			ExpansionCount: p.ExpansionCount,
			RelaxedFilters: p.Relax.Relaxed,
		},
	}
}

func ctxDone(ctx context.Context) bool {
	return ctx.Err() != nil
}
