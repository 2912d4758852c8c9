// Package export flattens a calculated plan into the document a spreadsheet
// generator consumes: raw inputs with their auto/manual flags, every derived
// value, the click to install ratio behind the click formula, and totals.
package export

import (
	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/format"
	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/models"
	"github.com/radiusdt/mediaplan/internal/planner"
)

// Title is the document title printed in the header block.
const Title = "Internet placement proposal"

// Header is the descriptive block above the table.
type Header struct {
	Client   string          `json:"client"`
	Campaign string          `json:"campaign"`
	Title    string          `json:"title"`
	Period   string          `json:"period"`
	Event    string          `json:"event"`
	Vertical models.Vertical `json:"vertical"`
	Mode     models.Mode     `json:"mode"`
	Currency string          `json:"currency"`
	Symbol   string          `json:"symbol"`
	// NumberFormat and DecimalFormat are spreadsheet number formats for
	// whole and fractional money cells.
	NumberFormat  string `json:"number_format"`
	DecimalFormat string `json:"decimal_format"`
}

// Record is one exported row. Rates are ratios (0.012 for 1.2%) so that the
// consumer can write live formulas such as clicks = installs / cr_install.
type Record struct {
	ID       string          `json:"id"`
	Channel  string          `json:"channel"`
	Platform models.Platform `json:"platform"`
	Geo      string          `json:"geo"`
	Period   string          `json:"period"`

	Budget    float64 `json:"budget"`
	CPI       float64 `json:"cpi"`
	CPIAuto   bool    `json:"cpi_auto"`
	CTR       float64 `json:"ctr"`
	CTRAuto   bool    `json:"ctr_auto"`
	CRInstall float64 `json:"cr_install"`
	// CRInstallAuto is always true for the installs goal, where the ratio
	// comes from benchmarks and is not a row input.
	CRInstallAuto bool `json:"cr_install_auto"`

	CRPurchase float64 `json:"cr_purchase,omitempty"`
	CPA        float64 `json:"cpa,omitempty"`

	Installs  float64 `json:"installs"`
	Clicks    float64 `json:"clicks"`
	CPC       float64 `json:"cpc"`
	Views     float64 `json:"views"`
	CPM       float64 `json:"cpm"`
	Purchases float64 `json:"purchases,omitempty"`
	CPP       float64 `json:"cpp,omitempty"`
	Events    float64 `json:"events,omitempty"`

	NoImpressionData bool `json:"no_impression_data"`

	Display Display `json:"display"`
}

// Display holds the strings a row shows on screen.
type Display struct {
	Budget    string `json:"budget"`
	CPI       string `json:"cpi"`
	CTR       string `json:"ctr"`
	Installs  string `json:"installs"`
	Clicks    string `json:"clicks"`
	CPC       string `json:"cpc"`
	Views     string `json:"views"`
	CPM       string `json:"cpm"`
	Purchases string `json:"purchases,omitempty"`
	CPP       string `json:"cpp,omitempty"`
	Events    string `json:"events,omitempty"`
}

// TotalsDisplay renders totals the way the summary row does.
type TotalsDisplay struct {
	Cost        string `json:"cost"`
	Installs    string `json:"installs"`
	Clicks      string `json:"clicks"`
	Views       string `json:"views"`
	Conversions string `json:"conversions"`
	VAT         string `json:"vat"`
	Gross       string `json:"gross"`
}

// Document is the full export payload.
type Document struct {
	Header        Header          `json:"header"`
	Records       []Record        `json:"records"`
	Summary       planner.Summary `json:"summary"`
	TotalsDisplay TotalsDisplay   `json:"totals_display"`
}

// Build flattens plan. summary must come from the same rows.
func Build(plan *models.Plan, summary planner.Summary, currencies currency.Table) Document {
	sym := currencies.Symbol(plan.Currency)
	doc := Document{
		Header: Header{
			Client:        plan.Client,
			Campaign:      plan.Campaign,
			Title:         Title,
			Period:        plan.Period,
			Event:         plan.Event,
			Vertical:      plan.Vertical,
			Mode:          plan.Mode,
			Currency:      plan.Currency,
			Symbol:        sym,
			NumberFormat:  numberFormat("#,##0", sym),
			DecimalFormat: numberFormat("#,##0.00", sym),
		},
		Records: make([]Record, 0, len(plan.Rows)),
		Summary: summary,
	}
	for _, r := range plan.Rows {
		doc.Records = append(doc.Records, record(plan.Mode, r))
	}

	t := summary.Totals
	doc.TotalsDisplay = TotalsDisplay{
		Cost:        format.Money(sym, t.Cost),
		Installs:    format.Number(t.Installs),
		Clicks:      format.Number(t.Clicks),
		Views:       format.Number(t.Views),
		Conversions: format.Number(t.Conversions),
		VAT:         format.Money(sym, summary.VAT.Amount),
		Gross:       format.Money(sym, summary.VAT.Gross),
	}
	return doc
}

func numberFormat(pattern, sym string) string {
	if sym == "" {
		return pattern
	}
	return pattern + `\ "` + sym + `"`
}

func record(mode models.Mode, r *models.Row) Record {
	d := r.Derived
	code := geo.ExtractCode(r.Geo)
	if code == "" {
		code = r.Geo
	}

	rec := Record{
		ID:               r.ID,
		Channel:          r.Channel,
		Platform:         r.Platform,
		Geo:              code,
		Period:           r.Period,
		Budget:           r.Budget,
		CPI:              r.CPI.Value,
		CPIAuto:          r.CPI.IsAuto(),
		CTR:              r.CTR.Value / 100,
		CTRAuto:          r.CTR.IsAuto(),
		Installs:         d.Installs,
		Clicks:           d.Clicks,
		CPC:              d.CPC,
		Views:            d.Views,
		CPM:              d.CPM,
		NoImpressionData: d.NoImpressionData,
		Display: Display{
			Budget:   rateDisplay(r.Budget),
			CPI:      rateDisplay(r.CPI.Value),
			CTR:      rateDisplay(r.CTR.Value),
			Installs: format.Calc(d.Installs),
			Clicks:   format.Calc(d.Clicks),
			CPC:      format.Calc(d.CPC),
			Views:    format.Calc(d.Views),
			CPM:      format.Calc(d.CPM),
		},
	}

	if mode == models.ModePurchases {
		rec.CRInstall = r.CRInstall.Value / 100
		rec.CRInstallAuto = r.CRInstall.IsAuto()
		rec.CPA = r.CPA
		rec.Events = d.Events
		rec.Display.Events = format.Calc(d.Events)
	} else {
		rec.CRInstall = d.CRInstallRatio
		rec.CRInstallAuto = true
		rec.CRPurchase = r.CRPurchase / 100
		rec.Purchases = d.Purchases
		rec.CPP = d.CPP
		rec.Display.Purchases = format.Calc(d.Purchases)
		rec.Display.CPP = format.Calc(d.CPP)
	}

	if d.NoImpressionData {
		rec.CTR, rec.Views, rec.CPM = 0, 0, 0
		rec.Display.CTR = format.Unavailable
		rec.Display.Views = format.Unavailable
		rec.Display.CPM = format.Unavailable
	}
	return rec
}

func rateDisplay(v float64) string {
	if v == 0 {
		return ""
	}
	return format.Spaces(v)
}
