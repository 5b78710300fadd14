// Package ads supplies operator-curated advertised places. The source is
// read-only input: a slowly-changing list queried by category and proximity.
package ads

import (
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/geo"
	"github.com/whimapp/discovery-cli/internal/model"
)

// Source lists advertised places eligible for a query.
type Source interface {
	// Eligible returns advertised places for the category within radius of
	// origin, best match first.
	Eligible(origin model.LatLng, radiusMeters float64, category filter.Category) []model.ScoredPlace
}

// Entry is one advertised place record as curated by operators.
type Entry struct {
	PlaceID   string   `yaml:"place_id"`
	Name      string   `yaml:"name"`
	Lat       float64  `yaml:"lat"`
	Lng       float64  `yaml:"lng"`
	Category  string   `yaml:"category"`
	Types     []string `yaml:"types"`
	Rating    *float64 `yaml:"rating,omitempty"`
	PriceTier *int     `yaml:"price_tier,omitempty"`

	Campaign struct {
		ID        string    `yaml:"id"`
		Name      string    `yaml:"name"`
		Sponsor   string    `yaml:"sponsor"`
		StartsAt  time.Time `yaml:"starts_at"`
		ExpiresAt time.Time `yaml:"expires_at"`
	} `yaml:"campaign"`
}

type adsFile struct {
	Entries []Entry `yaml:"advertised_places"`
}

// FileSource serves advertised places from a YAML file loaded at startup.
type FileSource struct {
	entries []Entry
	now     func() time.Time
}

// NewFileSource loads the advertised-place list from path. A missing path is
// not an error: it yields an empty source, and discovery runs without ads.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return &FileSource{now: time.Now}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("no advertised places file, ads disabled", zap.String("path", path))
			return &FileSource{now: time.Now}, nil
		}
		return nil, eris.Wrapf(err, "ads: read %s", path)
	}

	var f adsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "ads: parse %s", path)
	}

	zap.L().Info("advertised places loaded",
		zap.String("path", path),
		zap.Int("entries", len(f.Entries)),
	)
	return &FileSource{entries: f.Entries, now: time.Now}, nil
}

// NewStaticSource wraps a fixed entry list, used in tests and for
// operator-supplied in-memory lists.
func NewStaticSource(entries []Entry) *FileSource {
	return &FileSource{entries: entries, now: time.Now}
}

// Eligible filters the list by campaign window, category, and proximity,
// nearest first.
func (s *FileSource) Eligible(origin model.LatLng, radiusMeters float64, category filter.Category) []model.ScoredPlace {
	now := s.now()

	var out []model.ScoredPlace
	for _, e := range s.entries {
		if e.Category != string(category) {
			continue
		}
		if !e.Campaign.StartsAt.IsZero() && now.Before(e.Campaign.StartsAt) {
			continue
		}
		if !e.Campaign.ExpiresAt.IsZero() && now.After(e.Campaign.ExpiresAt) {
			continue
		}
		loc := model.LatLng{Lat: e.Lat, Lng: e.Lng}
		if !geo.WithinRadius(origin, loc, radiusMeters) {
			continue
		}
		out = append(out, toScoredPlace(e))
	}

	// Nearest first; the pool takes at most one per batch.
	sort.SliceStable(out, func(i, j int) bool {
		return geo.DistanceMeters(origin, out[i].Location) < geo.DistanceMeters(origin, out[j].Location)
	})
	return out
}

func toScoredPlace(e Entry) model.ScoredPlace {
	return model.ScoredPlace{
		Candidate: model.Candidate{
			ID:        e.PlaceID,
			Name:      e.Name,
			Location:  model.LatLng{Lat: e.Lat, Lng: e.Lng},
			Types:     e.Types,
			Rating:    e.Rating,
			PriceTier: e.PriceTier,
		},
		IsAdvertised: true,
		Campaign: &model.Campaign{
			ID:        e.Campaign.ID,
			Name:      e.Campaign.Name,
			Sponsor:   e.Campaign.Sponsor,
			StartsAt:  e.Campaign.StartsAt,
			ExpiresAt: e.Campaign.ExpiresAt,
		},
	}
}
