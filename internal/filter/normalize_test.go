package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaw() map[string]any {
	return map[string]any{
		"category":      "food",
		"mood":          85,
		"socialContext": "group",
		"budget":        "high",
		"timeOfDay":     "night",
		"distanceRange": 20,
		"origin":        map[string]any{"lat": 40.7128, "lng": -74.0060},
	}
}

func TestNormalize_Valid(t *testing.T) {
	set, warnings, err := Normalize(validRaw())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, CategoryFood, set.Category)
	assert.Equal(t, 85, set.Mood)
	assert.Equal(t, SocialGroup, set.Social)
	assert.Equal(t, BudgetHigh, set.Budget)
	assert.Equal(t, TimeNight, set.TimeOfDay)
	assert.Equal(t, 20, set.DistanceRange)
	assert.InDelta(t, 40.7128, set.Origin.Lat, 1e-9)
}

func TestNormalize_ClampsMoodAndDistance(t *testing.T) {
	raw := validRaw()
	raw["mood"] = 130
	raw["distanceRange"] = -5

	set, warnings, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 100, set.Mood)
	assert.Equal(t, 0, set.DistanceRange)
	require.Len(t, warnings, 2)
	assert.Equal(t, "mood", warnings[0].Field)
	assert.Equal(t, "distanceRange", warnings[1].Field)
}

func TestNormalize_InvalidOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin any
	}{
		{"missing", nil},
		{"lat out of range", map[string]any{"lat": 91.0, "lng": 0.0}},
		{"lng out of range", map[string]any{"lat": 0.0, "lng": -181.0}},
		{"non numeric", map[string]any{"lat": "north", "lng": "west"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			if tt.origin == nil {
				delete(raw, "origin")
			} else {
				raw["origin"] = tt.origin
			}
			_, _, err := Normalize(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOrigin)
		})
	}
}

func TestNormalize_UnknownCategoryRejected(t *testing.T) {
	raw := validRaw()
	raw["category"] = "nightlife"
	_, _, err := Normalize(raw)
	assert.Error(t, err)
}

func TestNormalize_UnknownOptionalEnumWarns(t *testing.T) {
	raw := validRaw()
	raw["budget"] = "extravagant"
	set, warnings, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, BudgetUnset, set.Budget)
	require.Len(t, warnings, 1)
	assert.Equal(t, "budget", warnings[0].Field)
}

func TestNormalize_EnumCaseAndSeparatorInsensitive(t *testing.T) {
	raw := validRaw()
	raw["category"] = "Something-New"
	raw["timeOfDay"] = "NIGHT"
	set, _, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, CategorySomethingNew, set.Category)
	assert.Equal(t, TimeNight, set.TimeOfDay)
}

func TestNormalize_DefaultsWhenOptionalFieldsAbsent(t *testing.T) {
	raw := map[string]any{
		"category": "activity",
		"origin":   map[string]any{"lat": 51.5, "lng": -0.12},
	}
	set, warnings, err := Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 50, set.Mood)
	assert.Equal(t, 50, set.DistanceRange)
	assert.Equal(t, SocialUnset, set.Social)
	assert.Equal(t, BudgetUnset, set.Budget)
	assert.Equal(t, TimeAny, set.TimeOfDay)
}

func TestSignature_StableAcrossKeyOrderAndCasing(t *testing.T) {
	a, _, err := Normalize(validRaw())
	require.NoError(t, err)

	// Same intent, different key spellings and enum casing.
	b, _, err := Normalize(map[string]any{
		"origin":         map[string]any{"lat": 40.7128, "lng": -74.0060},
		"distance_range": float64(20),
		"time_of_day":    "Night",
		"budget":         "HIGH",
		"social_context": "Group",
		"mood":           "85",
		"category":       "Food",
	})
	require.NoError(t, err)

	assert.Equal(t, a.Signature(), b.Signature())
}

func TestSignature_DiffersWhenIntentDiffers(t *testing.T) {
	a, _, err := Normalize(validRaw())
	require.NoError(t, err)

	raw := validRaw()
	raw["mood"] = 30
	b, _, err2 := Normalize(raw)
	require.NoError(t, err2)

	assert.NotEqual(t, a.Signature(), b.Signature())
}
