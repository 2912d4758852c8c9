// Package benchmark resolves CTR, CR install and CPI assumptions from the
// channel × vertical × GEO × platform benchmark tables.
package benchmark

import (
	"errors"
	"fmt"
	"os"

	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultChannelKey names the fallback channel benchmark.
const DefaultChannelKey = "_default"

// ErrInvalidSet is returned when a benchmark set misses required entries.
var ErrInvalidSet = errors.New("invalid benchmark set")

// ChannelBenchmark is the absolute base for one channel: CTR and CR install in
// percent, CPI in USD.
type ChannelBenchmark struct {
	Key               string `yaml:"key" json:"key"`
	models.Multiplier `yaml:",inline"`
}

// Set is an immutable bundle of benchmark tables. Channels are probed in slice
// order and the first key contained in the channel text wins.
type Set struct {
	Channels  []ChannelBenchmark                    `yaml:"channels"`
	Default   models.Multiplier                     `yaml:"default"`
	Verticals map[models.Vertical]models.Multiplier `yaml:"verticals"`
	Platforms map[models.Platform]models.Multiplier `yaml:"platforms"`
	Geo       geo.Tables                            `yaml:"geo"`

	// CPIFactor scales every resolved CPI; FinanceCPIFactor replaces it for
	// the finance vertical.
	CPIFactor        float64 `yaml:"cpi_factor"`
	FinanceCPIFactor float64 `yaml:"finance_cpi_factor"`

	// NoImpressionChannels lists source keys that report no views, CPM or CTR.
	NoImpressionChannels []string `yaml:"no_impression_channels"`
}

// DefaultSet returns the built-in benchmark tables.
func DefaultSet() Set {
	return Set{
		Channels: []ChannelBenchmark{
			// OEM / preinstall sources
			{"xiaomi", models.Multiplier{CTR: 1.2, CRInstall: 2.5, CPI: 1.00}},
			{"huawei", models.Multiplier{CTR: 1.0, CRInstall: 3.2, CPI: 1.20}},
			{"samsung", models.Multiplier{CTR: 1.1, CRInstall: 0.5, CPI: 1.10}},
			{"oppo", models.Multiplier{CTR: 1.0, CRInstall: 0.4, CPI: 1.00}},
			{"vivo", models.Multiplier{CTR: 1.0, CRInstall: 0.4, CPI: 1.00}},
			{"realme", models.Multiplier{CTR: 1.0, CRInstall: 0.4, CPI: 0.90}},
			{"transsion", models.Multiplier{CTR: 0.9, CRInstall: 0.3, CPI: 0.80}},
			// Performance channels
			{"facebook", models.Multiplier{CTR: 1.5, CRInstall: 3.0, CPI: 2.50}},
			{"meta", models.Multiplier{CTR: 1.5, CRInstall: 3.0, CPI: 2.50}},
			{"google", models.Multiplier{CTR: 2.0, CRInstall: 2.5, CPI: 2.80}},
			{"tiktok", models.Multiplier{CTR: 0.8, CRInstall: 1.5, CPI: 3.00}},
			{"unity", models.Multiplier{CTR: 1.8, CRInstall: 2.0, CPI: 1.80}},
			{"applovin", models.Multiplier{CTR: 1.6, CRInstall: 1.8, CPI: 2.20}},
			{"ironsource", models.Multiplier{CTR: 1.5, CRInstall: 1.7, CPI: 2.00}},
			{"mintegral", models.Multiplier{CTR: 1.2, CRInstall: 1.5, CPI: 1.80}},
			{"appnext", models.Multiplier{CTR: 0.9, CRInstall: 5.0, CPI: 1.50}},
			{"xapads", models.Multiplier{CTR: 0.8, CRInstall: 4.0, CPI: 1.20}},
			{"yandex", models.Multiplier{CTR: 1.4, CRInstall: 2.0, CPI: 1.50}},
			{"vk", models.Multiplier{CTR: 1.2, CRInstall: 1.5, CPI: 1.60}},
			{"snapchat", models.Multiplier{CTR: 0.7, CRInstall: 1.3, CPI: 3.50}},
			{"twitter", models.Multiplier{CTR: 0.5, CRInstall: 1.0, CPI: 4.50}},
			{"x", models.Multiplier{CTR: 0.5, CRInstall: 1.0, CPI: 4.50}},
			{"moloco", models.Multiplier{CTR: 1.3, CRInstall: 1.6, CPI: 2.00}},
			{"liftoff", models.Multiplier{CTR: 1.2, CRInstall: 1.5, CPI: 2.50}},
			{"digital_turbine", models.Multiplier{CTR: 1.0, CRInstall: 0.6, CPI: 0.90}},
		},
		Default: models.Multiplier{CTR: 1.2, CRInstall: 1.0, CPI: 2.00},
		Verticals: map[models.Vertical]models.Multiplier{
			models.VerticalGaming:        {CTR: 1.80, CRInstall: 1.30, CPI: 0.50},
			models.VerticalEntertainment: {CTR: 1.40, CRInstall: 1.15, CPI: 0.70},
			models.VerticalSocial:        {CTR: 1.30, CRInstall: 1.20, CPI: 0.75},
			models.VerticalHealth:        {CTR: 1.10, CRInstall: 1.00, CPI: 1.10},
			models.VerticalUtilities:     {CTR: 1.10, CRInstall: 0.95, CPI: 0.85},
			models.VerticalEducation:     {CTR: 1.00, CRInstall: 0.90, CPI: 0.90},
			models.VerticalEcommerce:     {CTR: 0.90, CRInstall: 0.85, CPI: 1.30},
			models.VerticalTravel:        {CTR: 0.90, CRInstall: 0.85, CPI: 1.25},
			models.VerticalDelivery:      {CTR: 0.85, CRInstall: 0.80, CPI: 1.20},
			models.VerticalFinance:       {CTR: 0.75, CRInstall: 0.70, CPI: 2.50},
			models.VerticalPharma:        {CTR: 0.80, CRInstall: 0.75, CPI: 2.00},
			models.VerticalOther:         {CTR: 1.00, CRInstall: 1.00, CPI: 1.00},
		},
		Platforms: map[models.Platform]models.Multiplier{
			models.PlatformAndroid: {CTR: 1.00, CRInstall: 1.00, CPI: 1.00},
			models.PlatformIOS:     {CTR: 1.25, CRInstall: 0.85, CPI: 2.50},
		},
		Geo:                  geo.DefaultTables(),
		CPIFactor:            2.35,
		FinanceCPIFactor:     1.47,
		NoImpressionChannels: []string{"xiaomi_codev"},
	}
}

// LoadFile reads a YAML benchmark set. Sections missing from the file keep the
// built-in values.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read benchmark file: %w", err)
	}

	var file Set
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Set{}, fmt.Errorf("failed to parse benchmark file: %w", err)
	}

	set := DefaultSet()
	if len(file.Channels) > 0 {
		set.Channels = file.Channels
	}
	if file.Default != (models.Multiplier{}) {
		set.Default = file.Default
	}
	if len(file.Verticals) > 0 {
		set.Verticals = file.Verticals
	}
	if len(file.Platforms) > 0 {
		set.Platforms = file.Platforms
	}
	if len(file.Geo.Countries) > 0 {
		set.Geo.Countries = file.Geo.Countries
	}
	if len(file.Geo.Regions) > 0 {
		set.Geo.Regions = file.Geo.Regions
	}
	if len(file.Geo.CountryRegion) > 0 {
		set.Geo.CountryRegion = file.Geo.CountryRegion
	}
	if file.CPIFactor > 0 {
		set.CPIFactor = file.CPIFactor
	}
	if file.FinanceCPIFactor > 0 {
		set.FinanceCPIFactor = file.FinanceCPIFactor
	}
	if file.NoImpressionChannels != nil {
		set.NoImpressionChannels = file.NoImpressionChannels
	}

	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate checks that every fallback the resolver relies on is present.
func (s Set) Validate() error {
	seen := make(map[string]bool, len(s.Channels))
	for i, c := range s.Channels {
		if c.Key == "" {
			return fmt.Errorf("%w: channel %d has no key", ErrInvalidSet, i)
		}
		if c.Key == DefaultChannelKey {
			return fmt.Errorf("%w: %s belongs in the default section", ErrInvalidSet, DefaultChannelKey)
		}
		if seen[c.Key] {
			return fmt.Errorf("%w: duplicate channel %q", ErrInvalidSet, c.Key)
		}
		seen[c.Key] = true
	}
	if _, ok := s.Verticals[models.VerticalOther]; !ok {
		return fmt.Errorf("%w: vertical %q is required", ErrInvalidSet, models.VerticalOther)
	}
	if _, ok := s.Platforms[models.PlatformAndroid]; !ok {
		return fmt.Errorf("%w: platform %q is required", ErrInvalidSet, models.PlatformAndroid)
	}
	if _, ok := s.Geo.Regions[geo.RegionRest]; !ok {
		return fmt.Errorf("%w: region %q is required", ErrInvalidSet, geo.RegionRest)
	}
	if s.CPIFactor <= 0 || s.FinanceCPIFactor <= 0 {
		return fmt.Errorf("%w: cpi factors must be > 0", ErrInvalidSet)
	}
	return nil
}
