package filter

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/whimapp/discovery-cli/internal/model"
)

// ErrInvalidOrigin is returned when the origin is missing or outside
// geographic bounds. It is the only fatal normalization outcome.
var ErrInvalidOrigin = eris.New("filter: invalid origin")

var fold = cases.Fold()

// Normalize validates and canonicalizes a raw filter payload. Out-of-range
// mood and distanceRange values are clamped with a warning rather than
// rejected; only a missing or out-of-bounds origin is an error.
func Normalize(raw map[string]any) (*Set, []Warning, error) {
	var warnings []Warning

	origin, ok := parseOrigin(raw)
	if !ok {
		return nil, nil, eris.Wrap(ErrInvalidOrigin, "filter: normalize")
	}

	category, ok := parseCategory(lookupString(raw, "category"))
	if !ok {
		return nil, nil, eris.Errorf("filter: unknown category %q", lookupString(raw, "category"))
	}

	mood, clamped := clamp(lookupInt(raw, 50, "mood"))
	if clamped {
		warnings = append(warnings, Warning{Field: "mood", Message: "clamped into [0,100]"})
	}

	distance, clamped := clamp(lookupInt(raw, 50, "distanceRange", "distance_range"))
	if clamped {
		warnings = append(warnings, Warning{Field: "distanceRange", Message: "clamped into [0,100]"})
	}

	social, known := parseSocial(lookupString(raw, "socialContext", "social_context", "social"))
	if !known {
		warnings = append(warnings, Warning{Field: "socialContext", Message: "unknown value, treated as unset"})
	}

	budget, known := parseBudget(lookupString(raw, "budget"))
	if !known {
		warnings = append(warnings, Warning{Field: "budget", Message: "unknown value, treated as unset"})
	}

	timeOfDay, known := parseTimeOfDay(lookupString(raw, "timeOfDay", "time_of_day"))
	if !known {
		warnings = append(warnings, Warning{Field: "timeOfDay", Message: "unknown value, treated as any"})
	}

	set := &Set{
		Category:      category,
		Mood:          mood,
		Social:        social,
		Budget:        budget,
		TimeOfDay:     timeOfDay,
		DistanceRange: distance,
		Origin:        origin,
	}

	if len(warnings) > 0 {
		zap.L().Debug("filter normalized with warnings",
			zap.Int("warnings", len(warnings)),
			zap.String("signature", set.Signature()),
		)
	}
	return set, warnings, nil
}

func parseOrigin(raw map[string]any) (model.LatLng, bool) {
	var lat, lng float64
	var ok bool

	if nested, found := raw["origin"].(map[string]any); found {
		lat, ok = lookupFloat(nested, "lat", "latitude")
		if !ok {
			return model.LatLng{}, false
		}
		lng, ok = lookupFloat(nested, "lng", "lon", "longitude")
		if !ok {
			return model.LatLng{}, false
		}
	} else {
		lat, ok = lookupFloat(raw, "originLat", "origin_lat", "lat")
		if !ok {
			return model.LatLng{}, false
		}
		lng, ok = lookupFloat(raw, "originLng", "origin_lng", "lng")
		if !ok {
			return model.LatLng{}, false
		}
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.LatLng{}, false
	}
	return model.LatLng{Lat: lat, Lng: lng}, true
}

func parseCategory(s string) (Category, bool) {
	switch normalizeEnum(s) {
	case "food":
		return CategoryFood, true
	case "activity":
		return CategoryActivity, true
	case "something_new", "somethingnew", "something-new":
		return CategorySomethingNew, true
	}
	return "", false
}

func parseSocial(s string) (SocialContext, bool) {
	switch normalizeEnum(s) {
	case "":
		return SocialUnset, true
	case "solo":
		return SocialSolo, true
	case "paired", "couple", "date":
		return SocialPaired, true
	case "group":
		return SocialGroup, true
	}
	return SocialUnset, false
}

func parseBudget(s string) (Budget, bool) {
	switch normalizeEnum(s) {
	case "":
		return BudgetUnset, true
	case "low":
		return BudgetLow, true
	case "mid", "medium":
		return BudgetMid, true
	case "high":
		return BudgetHigh, true
	}
	return BudgetUnset, false
}

func parseTimeOfDay(s string) (TimeOfDay, bool) {
	switch normalizeEnum(s) {
	case "", "any":
		return TimeAny, true
	case "morning":
		return TimeMorning, true
	case "afternoon":
		return TimeAfternoon, true
	case "night", "evening":
		return TimeNight, true
	}
	return TimeAny, false
}

// normalizeEnum case-folds and strips separators so "Something-New" and
// "something_new" compare equal.
func normalizeEnum(s string) string {
	folded := fold.String(strings.TrimSpace(s))
	folded = strings.ReplaceAll(folded, "-", "_")
	return folded
}

func clamp(v int) (int, bool) {
	if v < 0 {
		return 0, true
	}
	if v > 100 {
		return 100, true
	}
	return v, false
}

func lookupString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func lookupInt(raw map[string]any, def int, keys ...string) int {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return int(f)
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
		}
	}
	return def
}

func lookupFloat(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
