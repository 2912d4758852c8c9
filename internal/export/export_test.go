package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/radiusdt/mediaplan/internal/benchmark"
	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/format"
	"github.com/radiusdt/mediaplan/internal/models"
	"github.com/radiusdt/mediaplan/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	table := currency.DefaultTable()
	n := 0
	return planner.New(
		benchmark.NewResolver(benchmark.DefaultSet(), table, nil),
		currency.NewConverter(table, nil),
		planner.NewAggregator("RU", 0.2),
		planner.Defaults{},
		zap.NewNop(),
		planner.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("r%d", n)
		}),
	)
}

func ptr[T any](v T) *T { return &v }

func installsPlan(t *testing.T, p *planner.Planner) *models.Plan {
	t.Helper()
	plan := p.NewPlan()
	plan.Client = "Acme"
	plan.Currency = "RUB"
	_, _, err := p.AddGeo(plan, "RU")
	require.NoError(t, err)
	_, err = p.ActivateSource(plan, "xiaomi")
	require.NoError(t, err)
	_, err = p.ActivateSource(plan, "xiaomi_codev")
	require.NoError(t, err)
	for _, r := range plan.Rows {
		_, err := p.UpdateRow(plan, r.ID, planner.RowUpdate{Budget: ptr(100000.0)})
		require.NoError(t, err)
	}
	return plan
}

func TestBuildInstallsGoal(t *testing.T) {
	p := newPlanner(t)
	plan := installsPlan(t, p)
	_, err := p.UpdateRow(plan, "r1", planner.RowUpdate{CPI: ptr(50.0), CRPurchase: ptr(10.0)})
	require.NoError(t, err)

	doc := Build(plan, p.Summarize(plan), currency.DefaultTable())

	assert.Equal(t, Title, doc.Header.Title)
	assert.Equal(t, "Acme", doc.Header.Client)
	assert.Equal(t, "₽", doc.Header.Symbol)
	assert.Equal(t, `#,##0\ "₽"`, doc.Header.NumberFormat)
	require.Len(t, doc.Records, 2)

	x := doc.Records[0]
	assert.Equal(t, "RU", x.Geo)
	assert.Equal(t, "Xiaomi", x.Channel)
	assert.Equal(t, 50.0, x.CPI)
	assert.False(t, x.CPIAuto)
	assert.True(t, x.CTRAuto)
	assert.True(t, x.CRInstallAuto)
	assert.InDelta(t, plan.Rows[0].Derived.CRInstallRatio, x.CRInstall, 1e-12)
	assert.InDelta(t, x.Installs/x.CRInstall, x.Clicks, 1e-6, "clicks formula is reproducible")
	assert.InDelta(t, 0.1, x.CRPurchase, 1e-12)
	assert.Equal(t, 2000.0, x.Installs)
	assert.Equal(t, 200.0, x.Purchases)
	assert.Equal(t, "2 000", x.Display.Installs)
	assert.Equal(t, "100 000", x.Display.Budget)

	codev := doc.Records[1]
	assert.True(t, codev.NoImpressionData)
	assert.Zero(t, codev.Views)
	assert.Zero(t, codev.CPM)
	assert.Zero(t, codev.CTR)
	assert.Equal(t, format.Unavailable, codev.Display.Views)
	assert.Equal(t, format.Unavailable, codev.Display.CPM)
	assert.Equal(t, format.Unavailable, codev.Display.CTR)
	assert.Empty(t, codev.Display.Purchases, "zero purchases display empty")

	assert.True(t, doc.Summary.VAT.Applies)
	assert.Equal(t, "₽200,000", doc.TotalsDisplay.Cost)
	assert.Equal(t, "₽40,000", doc.TotalsDisplay.VAT)
	assert.Equal(t, "₽240,000", doc.TotalsDisplay.Gross)
}

func TestBuildPurchasesGoal(t *testing.T) {
	p := newPlanner(t)
	plan, err := p.SetMode(p.NewPlan(), models.ModePurchases)
	require.NoError(t, err)
	r := p.AddCustomRow(plan, "Unity Ads", models.PlatformIOS, "US")
	_, err = p.UpdateRow(plan, r.ID, planner.RowUpdate{Budget: ptr(900.0), CPA: ptr(9.0), CRInstall: ptr(4.0)})
	require.NoError(t, err)

	doc := Build(plan, p.Summarize(plan), currency.DefaultTable())
	require.Len(t, doc.Records, 1)
	rec := doc.Records[0]

	assert.Equal(t, models.ModePurchases, doc.Header.Mode)
	assert.InDelta(t, 0.04, rec.CRInstall, 1e-12)
	assert.False(t, rec.CRInstallAuto)
	assert.Equal(t, 9.0, rec.CPA)
	assert.Equal(t, 100.0, rec.Events)
	assert.Equal(t, "100", rec.Display.Events)
	assert.Zero(t, rec.Purchases)
	assert.False(t, doc.Summary.VAT.Applies)
	assert.Equal(t, "$900", doc.TotalsDisplay.Cost)
}

func TestWriteCSV(t *testing.T) {
	p := newPlanner(t)
	plan := installsPlan(t, p)
	doc := Build(plan, p.Summarize(plan), currency.DefaultTable())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, doc))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 6, "header, two rows, total, vat, gross")

	assert.Equal(t, installsColumns, lines[0])
	assert.Equal(t, "Xiaomi", lines[1][0])
	assert.Equal(t, "RU", lines[1][2])
	assert.NotEmpty(t, lines[1][7])
	assert.Empty(t, lines[2][7], "no views for rows without impression data")
	assert.Empty(t, lines[2][9])
	assert.Equal(t, "Total", lines[3][0])
	assert.Equal(t, "200000", lines[3][6])
	assert.Equal(t, "VAT 20%", lines[4][0])
	assert.Equal(t, "40000", lines[4][6])
	assert.Equal(t, "240000", lines[5][6])
}

func TestWriteCSVPurchasesWithoutVAT(t *testing.T) {
	p := newPlanner(t)
	plan, err := p.SetMode(p.NewPlan(), models.ModePurchases)
	require.NoError(t, err)
	p.AddCustomRow(plan, "Moloco", models.PlatformAndroid, "DE")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Build(plan, p.Summarize(plan), currency.DefaultTable())))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, purchasesColumns, lines[0])
	assert.Equal(t, "Total", lines[2][0])
}
