package benchmark

import (
	"strings"

	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/format"
	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/models"
)

// Query is the context a benchmark is resolved for.
type Query struct {
	Channel  string          `json:"channel"`
	Vertical models.Vertical `json:"vertical"`
	Geo      string          `json:"geo"`
	Platform models.Platform `json:"platform"`
	Currency string          `json:"currency"`
}

// Result is a resolved benchmark triple plus the lookups that produced it.
type Result struct {
	CTR       float64 `json:"ctr"`
	CRInstall float64 `json:"cr_install"`
	CPI       float64 `json:"cpi"`

	ChannelKey       string   `json:"channel_key"`
	GeoTier          geo.Tier `json:"geo_tier"`
	NoImpressionData bool     `json:"no_impression_data"`
}

// Recorder receives resolution events. metrics.Metrics satisfies it.
type Recorder interface {
	RecordBenchmarkResolution(channelKey string, tier string)
}

// Resolver composes channel, vertical, GEO and platform multipliers. It is
// safe for concurrent use; the underlying set is never mutated.
type Resolver struct {
	set        Set
	geo        *geo.Resolver
	currencies currency.Table
	noImpr     map[string]bool
	recorder   Recorder
}

// NewResolver builds a resolver over set. recorder may be nil.
func NewResolver(set Set, currencies currency.Table, recorder Recorder) *Resolver {
	noImpr := make(map[string]bool, len(set.NoImpressionChannels))
	for _, k := range set.NoImpressionChannels {
		noImpr[strings.ToLower(k)] = true
	}
	return &Resolver{
		set:        set,
		geo:        geo.NewResolver(set.Geo),
		currencies: currencies,
		noImpr:     noImpr,
		recorder:   recorder,
	}
}

// Geo returns the GEO resolver backed by the set's GEO tables.
func (r *Resolver) Geo() *geo.Resolver {
	return r.geo
}

// Set returns the benchmark set in use.
func (r *Resolver) Set() Set {
	return r.set
}

// Channel returns the base benchmark for channel text. Keys are probed in
// declared order and the first key contained in the lower-cased, trimmed text
// wins; DefaultChannelKey is returned when nothing matches.
func (r *Resolver) Channel(text string) (string, models.Multiplier) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle != "" {
		for _, c := range r.set.Channels {
			if strings.Contains(needle, c.Key) {
				return c.Key, c.Multiplier
			}
		}
	}
	return DefaultChannelKey, r.set.Default
}

func (r *Resolver) vertical(v models.Vertical) models.Multiplier {
	if m, ok := r.set.Verticals[v]; ok {
		return m
	}
	return r.set.Verticals[models.VerticalOther]
}

func (r *Resolver) platform(p models.Platform) models.Multiplier {
	if m, ok := r.set.Platforms[p]; ok {
		return m
	}
	return r.set.Platforms[models.PlatformAndroid]
}

// Resolve returns the benchmark CTR and CR install (percent, tier rounded)
// and the CPI in q.Currency rounded to one decimal.
func (r *Resolver) Resolve(q Query) Result {
	key, base := r.Channel(q.Channel)
	vert := r.vertical(q.Vertical)
	geoMul, tier := r.geo.Multipliers(q.Geo)
	plat := r.platform(q.Platform)

	factor := r.set.CPIFactor
	if q.Vertical == models.VerticalFinance {
		factor = r.set.FinanceCPIFactor
	}

	res := Result{
		CTR:        format.RoundBenchmark(base.CTR * vert.CTR * geoMul.CTR * plat.CTR),
		CRInstall:  format.RoundBenchmark(base.CRInstall * vert.CRInstall * geoMul.CRInstall * plat.CRInstall),
		CPI:        format.RoundTo(base.CPI*vert.CPI*geoMul.CPI*factor*plat.CPI*r.currencies.Rate(q.Currency), 1),
		ChannelKey: key,
		GeoTier:    tier,
	}
	res.NoImpressionData = r.IsNoImpression("", q.Channel)

	if r.recorder != nil {
		r.recorder.RecordBenchmarkResolution(key, string(tier))
	}
	return res
}

// IsNoImpression reports whether a row from sourceKey with the given channel
// text reports no impressions. Either the source key or the normalized
// channel text may be on the list.
func (r *Resolver) IsNoImpression(sourceKey, channel string) bool {
	if sourceKey != "" && r.noImpr[strings.ToLower(sourceKey)] {
		return true
	}
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(channel)), " ", "_")
	return norm != "" && r.noImpr[norm]
}
