package models

import (
	"errors"
	"fmt"
)

// Multiplier is a {CTR, CR install, CPI} triple. Base channel values are
// absolute (CTR and CR in percent, CPI in USD); every other table holds factors.
type Multiplier struct {
	CTR       float64 `json:"ctr" yaml:"ctr"`
	CRInstall float64 `json:"cr_install" yaml:"cr_install"`
	CPI       float64 `json:"cpi" yaml:"cpi"`
}

// Neutral is the identity multiplier.
var Neutral = Multiplier{CTR: 1, CRInstall: 1, CPI: 1}

// Row is one planned placement line.
type Row struct {
	ID        string   `json:"id"`
	SourceKey string   `json:"source_key,omitempty"`
	Channel   string   `json:"channel"`
	Platform  Platform `json:"platform"`
	Geo       string   `json:"geo"`
	Period    string   `json:"period,omitempty"`

	Budget float64 `json:"budget"`

	CPI Rate `json:"cpi"`
	CTR Rate `json:"ctr"`
	// CRInstall is the click to install rate in percent. Editable in purchases mode only.
	CRInstall Rate `json:"cr_install"`

	// CRPurchase is the install to purchase rate in percent (installs mode).
	CRPurchase float64 `json:"cr_purchase,omitempty"`
	// CPA is the cost per event (purchases mode).
	CPA float64 `json:"cpa,omitempty"`

	Derived Derived `json:"derived"`
}

// Derived holds read-only outputs of the calculator.
type Derived struct {
	Installs float64 `json:"installs"`
	Clicks   float64 `json:"clicks"`
	CPC      float64 `json:"cpc"`
	Views    float64 `json:"views"`
	CPM      float64 `json:"cpm"`

	Purchases float64 `json:"purchases,omitempty"`
	CPP       float64 `json:"cpp,omitempty"`
	Events    float64 `json:"events,omitempty"`

	// CRInstallRatio is the click to install ratio used for clicks (0.025 = 2.5%).
	CRInstallRatio float64 `json:"cr_install_ratio"`
	// NoImpressionData marks rows whose views, CPM and CTR are unavailable.
	NoImpressionData bool `json:"no_impression_data,omitempty"`
}

// Validate rejects negative inputs.
func (r *Row) Validate() error {
	if r.ID == "" {
		return errors.New("row id is required")
	}
	if r.Budget < 0 {
		return fmt.Errorf("row %s: budget must be >= 0", r.ID)
	}
	return nil
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := *r
	return &c
}
