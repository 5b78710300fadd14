package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/whimapp/discovery-cli/internal/ads"
	"github.com/whimapp/discovery-cli/internal/engine"
	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/radius"
	"github.com/whimapp/discovery-cli/internal/resilience"
	"github.com/whimapp/discovery-cli/internal/store"
	"github.com/whimapp/discovery-cli/pkg/mood"
	"github.com/whimapp/discovery-cli/pkg/places"
)

// engineEnv holds the initialized engine and its optional store, shared by
// the discover and serve commands.
type engineEnv struct {
	Store  store.Store // may be nil
	Engine *engine.Engine
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEngine sets up the place searcher, the optional mood analyzer, ad
// source, and store, and builds the engine. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if cfg.Google.Key == "" {
		return nil, eris.New("WHIM_GOOGLE_KEY is required")
	}

	searcher := places.NewGoogle(cfg.Google.Key,
		places.WithBaseURL(cfg.Google.BaseURL),
		places.WithRateLimit(cfg.Google.QPS),
	)

	var opts []engine.Option

	if cfg.Anthropic.Key != "" {
		opts = append(opts, engine.WithMoodAnalyzer(mood.NewClaude(cfg.Anthropic.Key, cfg.Anthropic.Model)))
		zap.L().Info("mood analysis enabled", zap.String("model", cfg.Anthropic.Model))
	} else {
		zap.L().Debug("WHIM_ANTHROPIC_KEY not set, mood analysis disabled")
	}

	adSource, err := ads.NewFileSource(cfg.Ads.File)
	if err != nil {
		return nil, err
	}
	opts = append(opts, engine.WithAdSource(adSource))

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		opts = append(opts, engine.WithSearchCache(st))
	}

	eng := engine.New(engineConfig(), searcher, opts...)
	return &engineEnv{Store: st, Engine: eng}, nil
}

// initStore constructs the configured store backend, or nil when no driver
// is set.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "":
		return nil, nil
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func engineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.BatchSize = cfg.Engine.BatchSize
	ec.Radius = radius.Config{
		MinResults:      cfg.Engine.MinResults,
		MaxExpansions:   cfg.Engine.MaxExpansions,
		GrowthFactor:    cfg.Engine.GrowthFactor,
		MaxRadiusMeters: cfg.Engine.MaxRadiusMeters,
	}
	ec.UpstreamTimeout = time.Duration(cfg.Engine.UpstreamTimeout) * time.Second
	ec.MoodConcurrency = cfg.Engine.MoodConcurrency
	ec.CacheTTL = time.Duration(cfg.Engine.CacheTTLMinutes) * time.Minute
	ec.PoolTTL = time.Duration(cfg.Engine.PoolTTLMinutes) * time.Minute
	if cfg.Engine.RetryMaxAttempts > 0 {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Engine.RetryMaxAttempts
		ec.Retry = retry
	}
	return ec
}

// journalBatch records a served batch when a store is configured. Journal
// failures are logged, never surfaced: serving the batch already succeeded.
func journalBatch(ctx context.Context, st store.Store, res *model.DiscoveryResult) {
	if st == nil || res == nil {
		return
	}

	ids := make([]string, len(res.Places))
	for i, p := range res.Places {
		ids[i] = p.ID
	}
	err := st.RecordBatch(ctx, model.BatchRecord{
		SessionID:      res.SessionID,
		Signature:      res.Signature,
		State:          res.State,
		RadiusMeters:   res.Expansion.RadiusMeters,
		ExpansionCount: res.Expansion.ExpansionCount,
		PlaceIDs:       ids,
	})
	if err != nil {
		zap.L().Warn("batch journal write failed", zap.Error(err))
	}
}
