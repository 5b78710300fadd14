package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/resilience"
)

func testRequest() SearchRequest {
	return SearchRequest{
		Origin:       model.LatLng{Lat: 40.7128, Lng: -74.0060},
		RadiusMeters: 1500,
		PlaceTypes:   []string{"restaurant", "cafe"},
	}
}

func samplePlace(id string) googlePlace {
	rating := 4.4
	return googlePlace{
		ID:              id,
		DisplayName:     displayName{Text: "Corner Bistro"},
		Location:        latLng{Latitude: 40.713, Longitude: -74.005},
		Types:           []string{"restaurant"},
		Rating:          &rating,
		UserRatingCount: 812,
		PriceLevel:      "PRICE_LEVEL_MODERATE",
		CurrentOpeningHours: &openingHours{OpenNow: true},
		Reviews: []review{
			{Text: localizedText{Text: "lively spot, great for groups"}},
		},
	}
}

func TestWithBaseURL_EmptyKeepsDefault(t *testing.T) {
	client := NewGoogle("test-key", WithBaseURL("")).(*googleClient)
	assert.Equal(t, defaultBaseURL, client.baseURL)
}

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchNearby", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.rating")

		var body nearbyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"restaurant", "cafe"}, body.IncludedTypes)
		assert.InDelta(t, 1500, body.LocationRestriction.Circle.Radius, 0.001)
		assert.InDelta(t, 40.7128, body.LocationRestriction.Circle.Center.Latitude, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(nearbyResponse{Places: []googlePlace{samplePlace("p1")}})
	}))
	defer srv.Close()

	client := NewGoogle("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	candidates, err := client.Search(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "p1", c.ID)
	assert.Equal(t, "Corner Bistro", c.Name)
	assert.InDelta(t, 4.4, *c.Rating, 0.001)
	assert.Equal(t, 812, c.ReviewCount)
	require.NotNil(t, c.PriceTier)
	assert.Equal(t, 2, *c.PriceTier)
	require.NotNil(t, c.OpenNow)
	assert.True(t, *c.OpenNow)
	assert.Equal(t, []string{"lively spot, great for groups"}, c.ReviewSnippets)
}

func TestSearch_PriceAndOpenNowFilters(t *testing.T) {
	cheap := samplePlace("cheap")
	cheap.PriceLevel = "PRICE_LEVEL_INEXPENSIVE"
	closed := samplePlace("closed")
	closed.CurrentOpeningHours = &openingHours{OpenNow: false}
	unpriced := samplePlace("unpriced")
	unpriced.PriceLevel = ""

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(nearbyResponse{
			Places: []googlePlace{samplePlace("keep"), cheap, closed, unpriced},
		})
	}))
	defer srv.Close()

	minTier, maxTier := 2, 4
	req := testRequest()
	req.MinPriceTier = &minTier
	req.MaxPriceTier = &maxTier
	req.OpenNow = true

	client := NewGoogle("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	candidates, err := client.Search(context.Background(), req)

	require.NoError(t, err)
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	// "cheap" is below the band, "closed" fails open-now; "unpriced" passes
	// because absent data is never a mismatch.
	assert.Equal(t, []string{"keep", "unpriced"}, ids)
}

func TestSearch_RateLimitedStatusIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewGoogle("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := client.Search(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.True(t, resilience.IsRateLimited(err))
}

func TestSearch_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewGoogle("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := client.Search(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.False(t, resilience.IsRateLimited(err))
}

func TestSearch_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad field mask"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewGoogle("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := client.Search(context.Background(), testRequest())

	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestSearch_BreakerRejectsAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewGoogle("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
		WithBreaker(resilience.NewBreaker(2, time.Hour)),
	)

	for i := 0; i < 2; i++ {
		_, err := client.Search(context.Background(), testRequest())
		require.Error(t, err)
	}
	_, err := client.Search(context.Background(), testRequest())
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
	assert.Equal(t, int32(2), calls.Load())
}
