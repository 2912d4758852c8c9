package currency

import (
	"github.com/radiusdt/mediaplan/internal/format"
	"github.com/radiusdt/mediaplan/internal/models"
)

// Recorder receives conversion events. metrics.Metrics satisfies it.
type Recorder interface {
	RecordCurrencyConversion(from, to string, rows int)
}

// Converter rescales monetary row fields between currencies.
type Converter struct {
	table    Table
	recorder Recorder
}

// NewConverter creates a converter over table. recorder may be nil.
func NewConverter(table Table, recorder Recorder) *Converter {
	return &Converter{table: table, recorder: recorder}
}

// Table returns the converter's currency table.
func (c *Converter) Table() Table {
	return c.table
}

// Convert multiplies every monetary field (budget, CPA, CPI, CPC, CPM, CPP) of
// every row by rate(to)/rate(from) and re-rounds it with format.RoundSmart.
// Ratios (CTR, CR install, CR purchase) are currency independent and left
// alone, as are empty fields. It returns the factor applied.
func (c *Converter) Convert(rows []*models.Row, from, to string) float64 {
	factor := c.table.Factor(from, to)
	if c.recorder != nil {
		c.recorder.RecordCurrencyConversion(from, to, len(rows))
	}
	if factor == 1 {
		return factor
	}
	for _, r := range rows {
		r.Budget = convert(r.Budget, factor)
		r.CPA = convert(r.CPA, factor)
		r.CPI.Value = convert(r.CPI.Value, factor)
		r.Derived.CPC = convert(r.Derived.CPC, factor)
		r.Derived.CPP = convert(r.Derived.CPP, factor)
		if !r.Derived.NoImpressionData {
			r.Derived.CPM = convert(r.Derived.CPM, factor)
		}
	}
	return factor
}

func convert(v, factor float64) float64 {
	if v == 0 {
		return 0
	}
	return format.RoundSmart(v * factor)
}
