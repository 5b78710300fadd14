package model

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is a raw place returned by the place-search capability.
// Immutable once scored.
type Candidate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       LatLng   `json:"location"`
	Types          []string `json:"types,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`       // 0–5, absent when unrated
	ReviewCount    int      `json:"review_count"`
	PriceTier      *int     `json:"price_tier,omitempty"`   // 0–4, absent when unknown
	OpenNow        *bool    `json:"open_now,omitempty"`
	ReviewSnippets []string `json:"review_snippets,omitempty"`
}

// ScoredPlace is a Candidate with its scoring breakdown. Scores are computed
// once and cached for the lifetime of the pool entry.
type ScoredPlace struct {
	Candidate

	RelevanceScore     float64 `json:"relevance_score"`
	QualityScore       float64 `json:"quality_score"`
	MoodAlignmentScore float64 `json:"mood_alignment_score"`
	CombinedScore      float64 `json:"combined_score"`

	// DiscoveryOrder is the candidate's position in upstream arrival order,
	// used as the final tie-break so identical upstream data ranks identically.
	DiscoveryOrder int `json:"-"`

	IsAdvertised bool      `json:"is_advertised,omitempty"`
	Campaign     *Campaign `json:"campaign,omitempty"`
}

// Campaign is the operator-side metadata attached to an advertised place.
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sponsor   string    `json:"sponsor,omitempty"`
	StartsAt  time.Time `json:"starts_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// LoadingState describes how a discovery cycle terminated.
type LoadingState string

const (
	// LoadingComplete means the cycle yielded at least the minimum result count.
	LoadingComplete LoadingState = "complete"
	// LoadingLimitReached means expansion budget ran out before the minimum was
	// met; the result carries whatever was found.
	LoadingLimitReached LoadingState = "limit_reached"
	// LoadingError means the upstream search failed after retries.
	LoadingError LoadingState = "error"
)

// ExpansionMeta records how hard the engine had to work for a result.
type ExpansionMeta struct {
	RadiusMeters   float64  `json:"radius_meters"`
	ExpansionCount int      `json:"expansion_count"`
	RelaxedFilters []string `json:"relaxed_filters,omitempty"`
}

// DiscoveryResult is the value returned to the caller for one batch.
type DiscoveryResult struct {
	SessionID string        `json:"session_id"`
	Signature string        `json:"signature"`
	Places    []ScoredPlace `json:"places"`
	State     LoadingState  `json:"state"`
	Expansion ExpansionMeta `json:"expansion"`
}
