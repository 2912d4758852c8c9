package planner

import (
	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/models"
)

// Totals are plan-wide sums. They are recomputed from rows on every call.
type Totals struct {
	Cost     float64 `json:"cost"`
	Installs float64 `json:"installs"`
	Clicks   float64 `json:"clicks"`
	Views    float64 `json:"views"`
	// Conversions sums rounded purchases (installs goal) or events.
	Conversions float64 `json:"conversions"`
}

// VAT is the tax block shown under the totals.
type VAT struct {
	Applies bool    `json:"applies"`
	Country string  `json:"country"`
	Rate    float64 `json:"rate"`
	Net     float64 `json:"net"`
	Amount  float64 `json:"amount"`
	Gross   float64 `json:"gross"`
}

// Summary bundles totals and VAT.
type Summary struct {
	Totals Totals `json:"totals"`
	VAT    VAT    `json:"vat"`
}

// Aggregator sums rows and applies a single-country VAT rule: when any row
// targets Country, VAT is Rate × cost.
type Aggregator struct {
	country string
	rate    float64
}

// NewAggregator creates an aggregator taxing plans that target country.
func NewAggregator(country string, rate float64) *Aggregator {
	return &Aggregator{country: country, rate: rate}
}

// Summarize computes totals and VAT for rows.
func (a *Aggregator) Summarize(rows []*models.Row) Summary {
	var t Totals
	taxed := false
	for _, r := range rows {
		t.Cost += r.Budget
		t.Installs += r.Derived.Installs
		t.Clicks += r.Derived.Clicks
		if !r.Derived.NoImpressionData {
			t.Views += r.Derived.Views
		}
		t.Conversions += r.Derived.Purchases + r.Derived.Events
		if a.country != "" && geo.ExtractCode(r.Geo) == a.country {
			taxed = true
		}
	}

	vat := VAT{Country: a.country, Rate: a.rate, Net: t.Cost, Gross: t.Cost}
	if taxed {
		vat.Applies = true
		vat.Amount = t.Cost * a.rate
		vat.Gross = t.Cost + vat.Amount
	}
	return Summary{Totals: t, VAT: vat}
}
