// Package planner owns the plan document: it creates rows from sources and
// GEOs, fills unlocked rates from benchmarks and keeps every derived value in
// step with its inputs.
package planner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/mediaplan/internal/benchmark"
	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/models"
	"go.uber.org/zap"
)

// DefaultPeriod is the period new source rows start with.
const DefaultPeriod = "1 month"

var (
	ErrRowNotFound         = errors.New("row not found")
	ErrUnknownSource       = errors.New("unknown source")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidGeo          = errors.New("invalid geo")
	ErrReadOnlyField       = errors.New("field is not editable in this mode")
)

// RateField names a rate input that can be locked or cleared.
type RateField string

const (
	FieldCPI       RateField = "cpi"
	FieldCTR       RateField = "ctr"
	FieldCRInstall RateField = "cr_install"
)

// RowUpdate carries edited row inputs. Nil fields are left untouched; setting
// CPI, CTR or CRInstall locks that rate.
type RowUpdate struct {
	Channel  *string          `json:"channel,omitempty"`
	Platform *models.Platform `json:"platform,omitempty"`
	Geo      *string          `json:"geo,omitempty"`
	Period   *string          `json:"period,omitempty"`

	Budget     *float64 `json:"budget,omitempty"`
	CPA        *float64 `json:"cpa,omitempty"`
	CRPurchase *float64 `json:"cr_purchase,omitempty"`

	CPI       *float64 `json:"cpi,omitempty"`
	CTR       *float64 `json:"ctr,omitempty"`
	CRInstall *float64 `json:"cr_install,omitempty"`
}

// Recorder receives plan operation events. metrics.Metrics satisfies it.
type Recorder interface {
	RecordPlanOperation(op string, duration time.Duration, err error)
	RecordRowsCalculated(mode string, rows int)
}

// Defaults are the settings a fresh plan starts with.
type Defaults struct {
	Currency string
	Vertical models.Vertical
	Mode     models.Mode
}

// Planner applies plan operations. It holds no plan state of its own, so one
// Planner may serve any number of plans; a single plan must not be mutated
// concurrently.
type Planner struct {
	resolver   *benchmark.Resolver
	converter  *currency.Converter
	aggregator *Aggregator
	catalog    Catalog
	defaults   Defaults
	logger     *zap.Logger
	metrics    Recorder
	newID      func() string
}

// Option configures a Planner.
type Option func(*Planner)

// WithCatalog replaces the built-in source catalog.
func WithCatalog(c Catalog) Option {
	return func(p *Planner) { p.catalog = c }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Recorder) Option {
	return func(p *Planner) { p.metrics = m }
}

// WithIDGenerator overrides row id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Planner) { p.newID = fn }
}

// New creates a planner.
func New(
	resolver *benchmark.Resolver,
	converter *currency.Converter,
	aggregator *Aggregator,
	defaults Defaults,
	logger *zap.Logger,
	opts ...Option,
) *Planner {
	if defaults.Currency == "" {
		defaults.Currency = currency.USD
	}
	if defaults.Vertical == "" {
		defaults.Vertical = models.VerticalOther
	}
	if !defaults.Mode.Valid() {
		defaults.Mode = models.ModeInstalls
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Planner{
		resolver:   resolver,
		converter:  converter,
		aggregator: aggregator,
		catalog:    DefaultCatalog(),
		defaults:   defaults,
		logger:     logger,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the source catalog.
func (p *Planner) Catalog() Catalog {
	return p.catalog
}

// NewPlan returns an empty plan with the configured defaults.
func (p *Planner) NewPlan() *models.Plan {
	return &models.Plan{
		Mode:     p.defaults.Mode,
		Vertical: p.defaults.Vertical,
		Currency: p.defaults.Currency,
		Rows:     []*models.Row{},
	}
}

// Reset discards plan and returns a fresh default one.
func (p *Planner) Reset() *models.Plan {
	return p.NewPlan()
}

func (p *Planner) record(op string, start time.Time, err error) {
	if p.metrics != nil {
		p.metrics.RecordPlanOperation(op, time.Since(start), err)
	}
}

// =============================================
// Calculation
// =============================================

// Calculate fills defaults, resolves every empty rate, recomputes every row
// and returns the plan summary. Auto rates are kept as posted: they only
// follow benchmarks again when a row's channel, platform, GEO or the plan
// vertical changes.
func (p *Planner) Calculate(plan *models.Plan) (summary Summary, err error) {
	start := time.Now()
	defer func() { p.record("calculate", start, err) }()

	p.fillDefaults(plan)
	if err := plan.Validate(); err != nil {
		return Summary{}, err
	}
	if !p.converter.Table().Supported(plan.Currency) {
		return Summary{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, plan.Currency)
	}
	for _, r := range plan.Rows {
		p.resolveRates(plan, r, models.Rate.IsEmpty)
		p.Recalculate(plan, r)
	}
	if p.metrics != nil {
		p.metrics.RecordRowsCalculated(string(plan.Mode), len(plan.Rows))
	}
	return p.Summarize(plan), nil
}

// Summarize returns totals and VAT for plan.
func (p *Planner) Summarize(plan *models.Plan) Summary {
	return p.aggregator.Summarize(plan.Rows)
}

func (p *Planner) fillDefaults(plan *models.Plan) {
	if plan.Mode == "" {
		plan.Mode = p.defaults.Mode
	}
	if plan.Vertical == "" {
		plan.Vertical = p.defaults.Vertical
	}
	if plan.Currency == "" {
		plan.Currency = p.defaults.Currency
	}
	plan.Currency = strings.ToUpper(plan.Currency)
	if plan.Rows == nil {
		plan.Rows = []*models.Row{}
	}
}

func (p *Planner) query(plan *models.Plan, r *models.Row) benchmark.Query {
	platform := r.Platform
	if platform == "" {
		platform = models.PlatformAndroid
	}
	return benchmark.Query{
		Channel:  r.Channel,
		Vertical: plan.Vertical,
		Geo:      geo.ExtractCode(r.Geo),
		Platform: platform,
		Currency: plan.Currency,
	}
}

// ApplyBenchmarks overwrites the row's empty or auto rates with resolved
// benchmarks. CR install is only a row input in the purchases goal, and rows
// without impression data never get a CTR. When every rate is locked this is
// a no-op.
func (p *Planner) ApplyBenchmarks(plan *models.Plan, r *models.Row) {
	p.resolveRates(plan, r, models.Rate.Resolvable)
}

// resolveRates sets every rate for which canSet holds to its benchmark.
func (p *Planner) resolveRates(plan *models.Plan, r *models.Row, canSet func(models.Rate) bool) {
	noImpr := p.resolver.IsNoImpression(r.SourceKey, r.Channel)
	ctrCanSet := canSet(r.CTR)
	cpiCanSet := canSet(r.CPI)
	crCanSet := plan.Mode == models.ModePurchases && canSet(r.CRInstall)
	if !ctrCanSet && !cpiCanSet && !crCanSet {
		return
	}

	res := p.resolver.Resolve(p.query(plan, r))
	if ctrCanSet && !noImpr {
		r.CTR = models.Auto(res.CTR)
	}
	if cpiCanSet {
		r.CPI = models.Auto(res.CPI)
	}
	if crCanSet {
		r.CRInstall = models.Auto(res.CRInstall)
	}
}

// Recalculate recomputes the row's derived fields. In the installs goal the
// click to install rate always comes from benchmarks.
func (p *Planner) Recalculate(plan *models.Plan, r *models.Row) {
	in := Inputs{
		Budget:           r.Budget,
		CPI:              r.CPI.Value,
		CTR:              r.CTR.Value,
		CRInstall:        r.CRInstall.Value,
		CRPurchase:       r.CRPurchase,
		CPA:              r.CPA,
		NoImpressionData: p.resolver.IsNoImpression(r.SourceKey, r.Channel),
	}
	if plan.Mode == models.ModeInstalls {
		in.CRInstall = p.resolver.Resolve(p.query(plan, r)).CRInstall
	}
	r.Derived = Calculate(plan.Mode, in)
}

// =============================================
// Sources & GEOs
// =============================================

// ActivateSource marks key active and creates its rows: one per selected GEO
// and platform, or one per platform without a GEO when none is selected.
// Rows that already exist for the same source, platform and GEO are kept.
func (p *Planner) ActivateSource(plan *models.Plan, key string) (added []*models.Row, err error) {
	start := time.Now()
	defer func() { p.record("activate_source", start, err) }()

	src, ok := p.catalog.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, key)
	}
	p.fillDefaults(plan)
	if !plan.HasSource(src.Key) {
		plan.Sources = append(plan.Sources, src.Key)
	}

	geos := plan.Geos
	if len(geos) == 0 {
		geos = []string{""}
	}
	for _, code := range geos {
		added = append(added, p.addSourceRows(plan, src, code)...)
	}

	p.logger.Debug("source activated",
		zap.String("source", src.Key),
		zap.Int("rows_added", len(added)),
	)
	return added, nil
}

func (p *Planner) addSourceRows(plan *models.Plan, src Source, code string) []*models.Row {
	var added []*models.Row
	for _, platform := range src.Platforms(plan.AppLinks) {
		if p.findSourceRow(plan, src.Key, platform, code) != nil {
			continue
		}
		r := &models.Row{
			ID:        p.newID(),
			SourceKey: src.Key,
			Channel:   src.Label,
			Platform:  platform,
			Geo:       p.resolver.Geo().Display(code),
			Period:    DefaultPeriod,
		}
		p.ApplyBenchmarks(plan, r)
		p.Recalculate(plan, r)
		plan.Rows = append(plan.Rows, r)
		added = append(added, r)
	}
	return added
}

func (p *Planner) findSourceRow(plan *models.Plan, key string, platform models.Platform, code string) *models.Row {
	for _, r := range plan.Rows {
		if r.SourceKey == key && r.Platform == platform && geo.ExtractCode(r.Geo) == code {
			return r
		}
	}
	return nil
}

// DeactivateSource removes every row of key and returns how many were removed.
func (p *Planner) DeactivateSource(plan *models.Plan, key string) int {
	key = strings.ToLower(strings.TrimSpace(key))
	removed := p.removeRows(plan, func(r *models.Row) bool { return r.SourceKey == key })
	plan.Sources = without(plan.Sources, key)
	p.logger.Debug("source deactivated", zap.String("source", key), zap.Int("rows_removed", removed))
	return removed
}

// AddGeo selects a GEO given as a code, a country name or a "Name (CODE)"
// display string, and creates rows for it for every active source. It
// returns the normalized code.
func (p *Planner) AddGeo(plan *models.Plan, raw string) (string, []*models.Row, error) {
	code := geo.ExtractCode(raw)
	if len(code) != 2 {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidGeo, raw)
	}
	p.fillDefaults(plan)
	if plan.HasGeo(code) {
		return code, nil, nil
	}
	plan.Geos = append(plan.Geos, code)

	var added []*models.Row
	for _, key := range plan.Sources {
		src, ok := p.catalog.Lookup(key)
		if !ok {
			continue
		}
		added = append(added, p.addSourceRows(plan, src, code)...)
	}
	return code, added, nil
}

// RemoveGeo deselects code and removes its rows. Sources left without rows
// are deactivated.
func (p *Planner) RemoveGeo(plan *models.Plan, raw string) int {
	code := geo.ExtractCode(raw)
	plan.Geos = without(plan.Geos, code)
	removed := p.removeRows(plan, func(r *models.Row) bool {
		return r.SourceKey != "" && geo.ExtractCode(r.Geo) == code
	})
	p.pruneSources(plan)
	return removed
}

// AddCustomRow appends a free-text row that belongs to no source.
func (p *Planner) AddCustomRow(plan *models.Plan, channel string, platform models.Platform, geoInput string) *models.Row {
	p.fillDefaults(plan)
	if platform == "" {
		platform = models.PlatformAndroid
	}
	r := &models.Row{
		ID:       p.newID(),
		Channel:  strings.TrimSpace(channel),
		Platform: platform,
		Geo:      p.geoDisplay(geoInput),
		Period:   DefaultPeriod,
	}
	p.ApplyBenchmarks(plan, r)
	p.Recalculate(plan, r)
	plan.Rows = append(plan.Rows, r)
	return r
}

// RemoveRow removes one row. Its source is deactivated once it has no rows.
func (p *Planner) RemoveRow(plan *models.Plan, id string) error {
	if p.removeRows(plan, func(r *models.Row) bool { return r.ID == id }) == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	p.pruneSources(plan)
	return nil
}

func (p *Planner) removeRows(plan *models.Plan, match func(*models.Row) bool) int {
	kept := plan.Rows[:0]
	removed := 0
	for _, r := range plan.Rows {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(plan.Rows); i++ {
		plan.Rows[i] = nil
	}
	plan.Rows = kept
	return removed
}

func (p *Planner) pruneSources(plan *models.Plan) {
	active := plan.Sources[:0]
	for _, key := range plan.Sources {
		for _, r := range plan.Rows {
			if r.SourceKey == key {
				active = append(active, key)
				break
			}
		}
	}
	plan.Sources = active
}

func (p *Planner) geoDisplay(raw string) string {
	code := geo.ExtractCode(raw)
	if code == "" {
		return ""
	}
	return p.resolver.Geo().Display(code)
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// =============================================
// Row editing
// =============================================

// UpdateRow applies u to the row with id, re-resolves unlocked rates when the
// channel, platform or GEO changed, and recalculates it.
func (p *Planner) UpdateRow(plan *models.Plan, id string, u RowUpdate) (row *models.Row, err error) {
	start := time.Now()
	defer func() { p.record("update_row", start, err) }()

	p.fillDefaults(plan)
	r := plan.FindRow(id)
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	if u.CRInstall != nil && plan.Mode != models.ModePurchases {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, FieldCRInstall)
	}
	for name, v := range map[string]*float64{
		"budget": u.Budget, "cpa": u.CPA, "cr_purchase": u.CRPurchase,
		"cpi": u.CPI, "ctr": u.CTR, "cr_install": u.CRInstall,
	} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%s must be >= 0", name)
		}
	}

	contextChanged := false
	if u.Channel != nil && *u.Channel != r.Channel {
		r.Channel = strings.TrimSpace(*u.Channel)
		contextChanged = true
	}
	if u.Platform != nil && *u.Platform != r.Platform {
		r.Platform = *u.Platform
		contextChanged = true
	}
	if u.Geo != nil {
		display := p.geoDisplay(*u.Geo)
		if display != r.Geo {
			r.Geo = display
			contextChanged = true
		}
	}
	if u.Period != nil {
		r.Period = *u.Period
	}
	if u.Budget != nil {
		r.Budget = *u.Budget
	}
	if u.CPA != nil {
		r.CPA = *u.CPA
	}
	if u.CRPurchase != nil {
		r.CRPurchase = *u.CRPurchase
	}
	if u.CPI != nil {
		r.CPI = models.Locked(*u.CPI)
	}
	if u.CTR != nil {
		r.CTR = models.Locked(*u.CTR)
	}
	if u.CRInstall != nil {
		r.CRInstall = models.Locked(*u.CRInstall)
	}

	if contextChanged {
		p.ApplyBenchmarks(plan, r)
	}
	p.Recalculate(plan, r)
	return r, nil
}

// ClearRate drops the user's value for field so benchmarks own it again.
func (p *Planner) ClearRate(plan *models.Plan, id string, field RateField) (*models.Row, error) {
	p.fillDefaults(plan)
	r := plan.FindRow(id)
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	switch field {
	case FieldCPI:
		r.CPI = models.Rate{}
	case FieldCTR:
		r.CTR = models.Rate{}
	case FieldCRInstall:
		r.CRInstall = models.Rate{}
	default:
		return nil, fmt.Errorf("unknown rate field %q", field)
	}
	p.ApplyBenchmarks(plan, r)
	p.Recalculate(plan, r)
	return r, nil
}

// =============================================
// Plan transitions
// =============================================

// SetMode returns a fresh plan for mode. Rows and active sources are dropped;
// descriptive fields, currency, vertical, GEOs and app links carry over.
func (p *Planner) SetMode(plan *models.Plan, mode models.Mode) (*models.Plan, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q", mode)
	}
	p.fillDefaults(plan)
	next := &models.Plan{
		Client:   plan.Client,
		Campaign: plan.Campaign,
		Period:   plan.Period,
		Event:    plan.Event,
		Mode:     mode,
		Vertical: plan.Vertical,
		Currency: plan.Currency,
		AppLinks: plan.AppLinks,
		Geos:     append([]string(nil), plan.Geos...),
		Rows:     []*models.Row{},
	}
	p.logger.Debug("plan mode changed",
		zap.String("from", string(plan.Mode)),
		zap.String("to", string(mode)),
		zap.Int("rows_dropped", len(plan.Rows)),
	)
	return next, nil
}

// SetVertical changes the vertical and re-applies benchmarks to every row.
func (p *Planner) SetVertical(plan *models.Plan, v models.Vertical) error {
	if !v.Known() {
		return fmt.Errorf("invalid vertical %q", v)
	}
	p.fillDefaults(plan)
	plan.Vertical = v
	for _, r := range plan.Rows {
		p.ApplyBenchmarks(plan, r)
		p.Recalculate(plan, r)
	}
	return nil
}

// SetCurrency rescales every money field into code and recalculates rows.
func (p *Planner) SetCurrency(plan *models.Plan, code string) (err error) {
	start := time.Now()
	defer func() { p.record("set_currency", start, err) }()

	code = strings.ToUpper(strings.TrimSpace(code))
	if !p.converter.Table().Supported(code) {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	p.fillDefaults(plan)
	if plan.Currency == code {
		return nil
	}
	factor := p.converter.Convert(plan.Rows, plan.Currency, code)
	p.logger.Debug("plan currency changed",
		zap.String("from", plan.Currency),
		zap.String("to", code),
		zap.Float64("factor", factor),
	)
	plan.Currency = code
	for _, r := range plan.Rows {
		p.Recalculate(plan, r)
	}
	return nil
}
