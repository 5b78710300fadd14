// Package mood provides the sentiment capability: inferring a 0–100 mood
// score for a place from its review snippets. The capability is optional —
// the engine falls back to a neutral score without it.
package mood

import "context"

// Analyzer is the mood/sentiment capability interface.
type Analyzer interface {
	AnalyzeMood(ctx context.Context, reviews []string) (int, error)
}

// Neutral is the mood score used when no sentiment data is available.
const Neutral = 50
