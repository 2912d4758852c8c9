package planner

import (
	"testing"

	"github.com/radiusdt/mediaplan/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSummarizeVAT(t *testing.T) {
	agg := NewAggregator("RU", 0.2)

	ru := &models.Row{ID: "a", Geo: "Russia (RU)", Budget: 100}
	us := &models.Row{ID: "b", Geo: "United States (US)", Budget: 50}

	s := agg.Summarize([]*models.Row{ru, us})
	assert.Equal(t, 150.0, s.Totals.Cost)
	assert.True(t, s.VAT.Applies)
	assert.InDelta(t, 30, s.VAT.Amount, 1e-9)
	assert.InDelta(t, 180, s.VAT.Gross, 1e-9)
	assert.Equal(t, 150.0, s.VAT.Net)

	s = agg.Summarize([]*models.Row{us})
	assert.False(t, s.VAT.Applies)
	assert.Zero(t, s.VAT.Amount)
	assert.Equal(t, s.Totals.Cost, s.VAT.Gross)
}

func TestSummarizeAcceptsBareCodes(t *testing.T) {
	agg := NewAggregator("RU", 0.2)

	s := agg.Summarize([]*models.Row{{ID: "a", Geo: "ru", Budget: 10}})
	assert.True(t, s.VAT.Applies)
}

func TestSummarizeTotals(t *testing.T) {
	agg := NewAggregator("RU", 0.2)

	rows := []*models.Row{
		{ID: "a", Budget: 100, Derived: models.Derived{Installs: 50, Clicks: 1000, Views: 10000, Purchases: 3}},
		{ID: "b", Budget: 200, Derived: models.Derived{Installs: 25.5, Clicks: 500, Views: 0, Purchases: 2}},
		{ID: "c", Budget: 300, Derived: models.Derived{Installs: 10, Clicks: 100, Views: 999, NoImpressionData: true}},
	}

	s := agg.Summarize(rows)
	assert.Equal(t, Totals{
		Cost:        600,
		Installs:    85.5,
		Clicks:      1600,
		Views:       10000,
		Conversions: 5,
	}, s.Totals)
}

func TestSummarizeEmpty(t *testing.T) {
	s := NewAggregator("RU", 0.2).Summarize(nil)
	assert.Equal(t, Totals{}, s.Totals)
	assert.False(t, s.VAT.Applies)
}
