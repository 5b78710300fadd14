package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whimapp/discovery-cli/internal/engine"
	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/resilience"
	"github.com/whimapp/discovery-cli/pkg/places"
)

type scriptedSearcher struct {
	fn func(req places.SearchRequest) ([]model.Candidate, error)
}

func (s *scriptedSearcher) Search(_ context.Context, req places.SearchRequest) ([]model.Candidate, error) {
	return s.fn(req)
}

func fixedCandidates(n int) []model.Candidate {
	out := make([]model.Candidate, n)
	for i := range out {
		rating := 4.2
		out[i] = model.Candidate{
			ID:       fmt.Sprintf("place-%d", i),
			Name:     fmt.Sprintf("Place %d", i),
			Location: model.LatLng{Lat: 41.88, Lng: -87.63},
			Types:    []string{"restaurant"},
			Rating:   &rating,
		}
	}
	return out
}

func newTestRouter(t *testing.T, fn func(req places.SearchRequest) ([]model.Candidate, error)) http.Handler {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Retry = resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}
	eng := engine.New(cfg, &scriptedSearcher{fn: fn})
	return newRouter(eng, nil)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validFilters() map[string]any {
	return map[string]any{
		"origin":   map[string]any{"lat": 41.88, "lng": -87.63},
		"category": "food",
		"mood":     60,
	}
}

func TestServeHealth(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(8), nil
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeDiscover(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(8), nil
	})

	rec := postJSON(t, h, "/v1/discover", validFilters())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string              `json:"session_id"`
		State     string              `json:"state"`
		Places    []model.ScoredPlace `json:"places"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "complete", resp.State)
	assert.Len(t, resp.Places, 4)
}

func TestServeDiscoverInvalidOrigin(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(8), nil
	})

	rec := postJSON(t, h, "/v1/discover", map[string]any{
		"origin":   map[string]any{"lat": 200.0, "lng": 0.0},
		"category": "food",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestServeDiscoverBadBody(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(8), nil
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/discover", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeDiscoverUpstreamFailure(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return nil, errors.New("api key rejected")
	})

	rec := postJSON(t, h, "/v1/discover", validFilters())
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.State)
}

func TestServeNextBatchDisjoint(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(12), nil
	})

	first := postJSON(t, h, "/v1/discover", validFilters())
	require.Equal(t, http.StatusOK, first.Code)
	second := postJSON(t, h, "/v1/next", validFilters())
	require.Equal(t, http.StatusOK, second.Code)

	var a, b struct {
		Places []model.ScoredPlace `json:"places"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))

	seen := map[string]bool{}
	for _, p := range append(a.Places, b.Places...) {
		assert.False(t, seen[p.ID], "place %s served twice", p.ID)
		seen[p.ID] = true
	}
}

func TestServeReset(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(8), nil
	})

	rec := postJSON(t, h, "/v1/reset", validFilters())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"reset"}`, rec.Body.String())
}

func TestServeCORSPreflight(t *testing.T) {
	h := newTestRouter(t, func(places.SearchRequest) ([]model.Candidate, error) {
		return fixedCandidates(8), nil
	})

	req := httptest.NewRequest(http.MethodOptions, "/v1/discover", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
