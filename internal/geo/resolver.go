// Package geo turns free-text GEO input into ISO country codes and maps codes
// to benchmark multipliers.
package geo

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/radiusdt/mediaplan/internal/models"
)

// Tier tells which table a GEO multiplier came from.
type Tier string

const (
	TierNeutral Tier = "neutral"
	TierCountry Tier = "country"
	TierRegion  Tier = "region"
	TierRest    Tier = "rest"
)

var displayCode = regexp.MustCompile(`\(([A-Z]{2})\)\s*$`)

// Resolver resolves GEO input against a fixed set of tables. It is safe for
// concurrent use; tables are never mutated after construction.
type Resolver struct {
	tables Tables
	byCode map[string]string
}

// NewResolver creates a resolver over t.
func NewResolver(t Tables) *Resolver {
	byCode := make(map[string]string, len(countries))
	for _, c := range countries {
		byCode[c.Code] = c.Name
	}
	return &Resolver{tables: t, byCode: byCode}
}

// Normalize converts "RU", "Russia" or "russia" into "RU".
//
// Input that is neither a 2-letter code nor a known alias falls back to its
// first two letters upper-cased, so "Nowhereland" becomes "NO". That guess can
// collide with a real country and is kept as a known accuracy limitation.
func Normalize(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return ""
	}
	if utf8.RuneCountInString(cleaned) == 2 {
		return strings.ToUpper(cleaned)
	}
	if code, ok := aliases[cleaned]; ok {
		return code
	}
	upper := []rune(strings.ToUpper(cleaned))
	if len(upper) > 2 {
		upper = upper[:2]
	}
	return string(upper)
}

// ExtractCode reads the code from a display value like "Germany (DE)" and
// falls back to Normalize otherwise.
func ExtractCode(display string) string {
	if display == "" {
		return ""
	}
	if m := displayCode.FindStringSubmatch(display); m != nil {
		return m[1]
	}
	return Normalize(display)
}

// Multipliers returns the GEO multiplier for code: neutral for an empty code,
// then the direct country table, then the country's region, then RegionRest.
func (r *Resolver) Multipliers(code string) (models.Multiplier, Tier) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.Neutral, TierNeutral
	}
	if m, ok := r.tables.Countries[code]; ok {
		return m, TierCountry
	}
	if region, ok := r.tables.CountryRegion[code]; ok {
		if m, ok := r.tables.Regions[region]; ok {
			return m, TierRegion
		}
	}
	if m, ok := r.tables.Regions[RegionRest]; ok {
		return m, TierRest
	}
	return models.Neutral, TierRest
}

// Name returns the English country name for code, or code itself when unknown.
func (r *Resolver) Name(code string) string {
	if name, ok := r.byCode[code]; ok {
		return name
	}
	return code
}

// Display renders code the way GEO inputs show it: "Germany (DE)".
func (r *Resolver) Display(code string) string {
	if code == "" {
		return ""
	}
	return r.Name(code) + " (" + code + ")"
}

// Countries returns the country list sorted by name.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}
