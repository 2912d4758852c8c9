package planner

import (
	"math"

	"github.com/radiusdt/mediaplan/internal/models"
)

// Inputs are the numbers one row's formula chain starts from. Rates are in
// percent; money is in the plan currency.
type Inputs struct {
	Budget     float64
	CPI        float64
	CTR        float64
	CRInstall  float64
	CRPurchase float64
	CPA        float64

	NoImpressionData bool
}

// Calculate derives every read-only row field from in. The chain is
//
//	installs -> clicks -> cpc -> views -> cpm
//
// followed by purchases and cpp (installs goal) or events (purchases goal).
// A non-positive denominator yields 0 for that field and everything computed
// from it. Views and CPM stay 0 for rows without impression data; callers
// show them as unavailable.
func Calculate(mode models.Mode, in Inputs) models.Derived {
	var d models.Derived

	d.Installs = div(in.Budget, in.CPI)
	d.CRInstallRatio = in.CRInstall / 100
	d.Clicks = div(d.Installs, d.CRInstallRatio)
	d.CPC = div(in.Budget, d.Clicks)

	d.NoImpressionData = in.NoImpressionData
	if !in.NoImpressionData {
		d.Views = div(d.Clicks, in.CTR/100)
		d.CPM = div(in.Budget, d.Views) * 1000
	}

	switch mode {
	case models.ModePurchases:
		d.Events = math.Round(div(in.Budget, in.CPA))
	default:
		purchases := d.Installs * in.CRPurchase / 100
		d.Purchases = math.Round(purchases)
		d.CPP = div(in.Budget, purchases)
	}
	return d
}

func div(num, den float64) float64 {
	if den <= 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}
