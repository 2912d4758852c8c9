package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/radiusdt/mediaplan/internal/models"
)

var (
	installsColumns = []string{
		"Channel", "Platform", "Targeting", "Period",
		"Total installs", "CPI", "Total cost",
		"Views", "CPM", "CTR", "Total clicks", "CPC",
		"CR install to purchase", "Total purchases", "Cost per purchase",
	}
	purchasesColumns = []string{
		"Channel", "Platform", "Targeting", "Period",
		"Total purchases", "Cost per purchase", "Total cost",
		"Views", "CPM", "CTR", "Total clicks", "CPC",
		"CR click to install", "Total installs", "CPI",
	}
)

// WriteCSV writes the records and a total line as CSV. Numbers are written
// at full precision; rows without impression data leave views, CPM and CTR
// empty.
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)

	header := installsColumns
	if doc.Header.Mode == models.ModePurchases {
		header = purchasesColumns
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, rec := range doc.Records {
		views, cpm, ctr := num(rec.Views), num(rec.CPM), num(rec.CTR)
		if rec.NoImpressionData {
			views, cpm, ctr = "", "", ""
		}
		line := []string{rec.Channel, string(rec.Platform), rec.Geo, rec.Period}
		if doc.Header.Mode == models.ModePurchases {
			line = append(line,
				num(rec.Events), num(rec.CPA), num(rec.Budget),
				views, cpm, ctr, num(rec.Clicks), num(rec.CPC),
				num(rec.CRInstall), num(rec.Installs), num(rec.CPI),
			)
		} else {
			line = append(line,
				num(rec.Installs), num(rec.CPI), num(rec.Budget),
				views, cpm, ctr, num(rec.Clicks), num(rec.CPC),
				num(rec.CRPurchase), num(rec.Purchases), num(rec.CPP),
			)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write csv record %s: %w", rec.ID, err)
		}
	}

	t := doc.Summary.Totals
	total := make([]string, len(header))
	total[0] = "Total"
	total[6] = num(t.Cost)
	total[7] = num(t.Views)
	total[10] = num(t.Clicks)
	if doc.Header.Mode == models.ModePurchases {
		total[4] = num(t.Conversions)
		total[13] = num(t.Installs)
	} else {
		total[4] = num(t.Installs)
		total[13] = num(t.Conversions)
	}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("failed to write csv totals: %w", err)
	}

	if doc.Summary.VAT.Applies {
		vat := make([]string, len(header))
		vat[0] = fmt.Sprintf("VAT %s%%", num(doc.Summary.VAT.Rate*100))
		vat[6] = num(doc.Summary.VAT.Amount)
		gross := make([]string, len(header))
		gross[0] = "Total incl. VAT"
		gross[6] = num(doc.Summary.VAT.Gross)
		if err := cw.WriteAll([][]string{vat, gross}); err != nil {
			return fmt.Errorf("failed to write csv vat: %w", err)
		}
		return nil
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
