// Package places defines the place-search capability the discovery engine
// depends on, plus the Google Places implementation. The engine never sees
// transport, auth, or provider-specific types.
package places

import (
	"context"

	"github.com/whimapp/discovery-cli/internal/model"
)

// SearchRequest describes one upstream search at a fixed radius.
type SearchRequest struct {
	Origin       model.LatLng
	RadiusMeters float64
	PlaceTypes   []string

	// MinPriceTier/MaxPriceTier bound the provider price tier (0–4) when set.
	MinPriceTier *int
	MaxPriceTier *int

	// OpenNow restricts results to places currently open.
	OpenNow bool
}

// Searcher is the capability interface for the raw place-search transport.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]model.Candidate, error)
}
