// Package currency holds the closed set of plan currencies and rescales
// monetary row fields when the plan currency changes.
package currency

import (
	"sort"
	"strings"
)

// USD is the currency benchmark CPIs are denominated in.
const USD = "USD"

// Currency is a supported plan currency.
type Currency struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"` // units per 1 USD
}

// Table is a static, read-only currency table.
type Table map[string]Currency

// DefaultTable returns the built-in USD-pegged rates.
func DefaultTable() Table {
	return Table{
		"USD": {Code: "USD", Symbol: "$", Rate: 1},
		"EUR": {Code: "EUR", Symbol: "€", Rate: 0.92},
		"RUB": {Code: "RUB", Symbol: "₽", Rate: 96},
		"GBP": {Code: "GBP", Symbol: "£", Rate: 0.79},
		"KZT": {Code: "KZT", Symbol: "₸", Rate: 470},
		"UAH": {Code: "UAH", Symbol: "₴", Rate: 41.5},
		"BRL": {Code: "BRL", Symbol: "R$", Rate: 5.1},
		"INR": {Code: "INR", Symbol: "₹", Rate: 83.5},
	}
}

// Supported reports whether code is in the table.
func (t Table) Supported(code string) bool {
	_, ok := t[strings.ToUpper(code)]
	return ok
}

// Rate returns units per USD for code; unsupported codes count as 1.
func (t Table) Rate(code string) float64 {
	if c, ok := t[strings.ToUpper(code)]; ok && c.Rate > 0 {
		return c.Rate
	}
	return 1
}

// Symbol returns the display symbol for code, or "" when unsupported.
func (t Table) Symbol(code string) string {
	return t[strings.ToUpper(code)].Symbol
}

// Factor is the multiplier that converts an amount in from into to.
func (t Table) Factor(from, to string) float64 {
	return t.Rate(to) / t.Rate(from)
}

// List returns the currencies sorted by code.
func (t Table) List() []Currency {
	out := make([]Currency, 0, len(t))
	for _, c := range t {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
