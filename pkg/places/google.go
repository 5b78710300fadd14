package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	maxResultCount = 20
)

// fieldMask limits the response to the fields the engine consumes.
const fieldMask = "places.id,places.displayName,places.location,places.types," +
	"places.rating,places.userRatingCount,places.priceLevel," +
	"places.currentOpeningHours.openNow,places.reviews.text"

// Option configures the Google client.
type Option func(*googleClient)

// WithBaseURL overrides the default API base URL. An empty value keeps the
// default.
func WithBaseURL(url string) Option {
	return func(c *googleClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *googleClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the client-side requests-per-second cap.
func WithRateLimit(rps float64) Option {
	return func(c *googleClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *googleClient) {
		c.breaker = b
	}
}

type googleClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewGoogle creates a Searcher backed by the Google Places (New) Nearby
// Search API.
func NewGoogle(apiKey string, opts ...Option) Searcher {
	c := &googleClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		breaker: resilience.NewBreaker(5, 30*time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nearbyRequest struct {
	IncludedTypes       []string            `json:"includedTypes,omitempty"`
	MaxResultCount      int                 `json:"maxResultCount"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type nearbyResponse struct {
	Places []googlePlace `json:"places"`
}

type googlePlace struct {
	ID                  string        `json:"id"`
	DisplayName         displayName   `json:"displayName"`
	Location            latLng        `json:"location"`
	Types               []string      `json:"types"`
	Rating              *float64      `json:"rating"`
	UserRatingCount     int           `json:"userRatingCount"`
	PriceLevel          string        `json:"priceLevel"`
	CurrentOpeningHours *openingHours `json:"currentOpeningHours"`
	Reviews             []review      `json:"reviews"`
}

type displayName struct {
	Text string `json:"text"`
}

type openingHours struct {
	OpenNow bool `json:"openNow"`
}

type review struct {
	Text localizedText `json:"text"`
}

type localizedText struct {
	Text string `json:"text"`
}

// priceTiers maps the v1 price-level enum onto the 0–4 tier scale.
var priceTiers = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

func (c *googleClient) Search(ctx context.Context, req SearchRequest) ([]model.Candidate, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit wait")
	}

	candidates, err := c.search(ctx, req)
	c.breaker.Record(err)
	return candidates, err
}

func (c *googleClient) search(ctx context.Context, req SearchRequest) ([]model.Candidate, error) {
	body, err := json.Marshal(nearbyRequest{
		IncludedTypes:  req.PlaceTypes,
		MaxResultCount: maxResultCount,
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: latLng{Latitude: req.Origin.Lat, Longitude: req.Origin.Lng},
				Radius: req.RadiusMeters,
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, resilience.Unavailable(eris.Wrap(err, "places: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Unavailable(eris.Wrap(err, "places: read response"), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resilience.RateLimited(eris.Errorf("places: rate limited: %s", string(respBody)))
	case resilience.TransientStatus(resp.StatusCode):
		return nil, resilience.Unavailable(
			eris.Errorf("places: upstream status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result nearbyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	candidates := make([]model.Candidate, 0, len(result.Places))
	for _, p := range result.Places {
		cand := toCandidate(p)
		if !matchesFilters(cand, req) {
			continue
		}
		candidates = append(candidates, cand)
	}

	zap.L().Debug("places search",
		zap.Float64("radius_m", req.RadiusMeters),
		zap.Int("raw", len(result.Places)),
		zap.Int("kept", len(candidates)),
	)
	return candidates, nil
}

func toCandidate(p googlePlace) model.Candidate {
	c := model.Candidate{
		ID:          p.ID,
		Name:        p.DisplayName.Text,
		Location:    model.LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
		Types:       p.Types,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
	}
	if tier, ok := priceTiers[p.PriceLevel]; ok {
		t := tier
		c.PriceTier = &t
	}
	if p.CurrentOpeningHours != nil {
		open := p.CurrentOpeningHours.OpenNow
		c.OpenNow = &open
	}
	for _, r := range p.Reviews {
		if r.Text.Text != "" {
			c.ReviewSnippets = append(c.ReviewSnippets, r.Text.Text)
		}
	}
	return c
}

// matchesFilters applies the price and open-now filters the nearby endpoint
// does not evaluate server-side. Absent data passes: it is handled by
// scoring, not exclusion.
func matchesFilters(c model.Candidate, req SearchRequest) bool {
	if c.PriceTier != nil {
		if req.MinPriceTier != nil && *c.PriceTier < *req.MinPriceTier {
			return false
		}
		if req.MaxPriceTier != nil && *c.PriceTier > *req.MaxPriceTier {
			return false
		}
	}
	if req.OpenNow && c.OpenNow != nil && !*c.OpenNow {
		return false
	}
	return true
}
