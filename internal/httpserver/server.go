package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/radiusdt/mediaplan/internal/appmeta"
	"github.com/radiusdt/mediaplan/internal/benchmark"
	"github.com/radiusdt/mediaplan/internal/config"
	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/database"
	"github.com/radiusdt/mediaplan/internal/export"
	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/metrics"
	"github.com/radiusdt/mediaplan/internal/models"
	"github.com/radiusdt/mediaplan/internal/planner"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Planner    *planner.Planner
	Resolver   *benchmark.Resolver
	Currencies currency.Table
	// AppMeta is nil when vertical detection is disabled.
	AppMeta *appmeta.Client
	// Redis is nil when no cache backend is configured.
	Redis *database.RedisDB
}

// Server wraps HTTP handlers around the planner. It keeps no plan state: every
// plan request carries the whole document and gets the updated one back.
type Server struct {
	planner    *planner.Planner
	resolver   *benchmark.Resolver
	currencies currency.Table
	appMeta    *appmeta.Client
	redis      *database.RedisDB
	logger     *zap.Logger
	config     *config.Config
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		planner:    deps.Planner,
		resolver:   deps.Resolver,
		currencies: deps.Currencies,
		appMeta:    deps.AppMeta,
		redis:      deps.Redis,
		logger:     deps.Logger,
		config:     deps.Config,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Reference data
	mux.HandleFunc("/v1/currencies", s.handleCurrencies)
	mux.HandleFunc("/v1/countries", s.handleCountries)
	mux.HandleFunc("/v1/sources", s.handleSources)
	mux.HandleFunc("/v1/verticals", s.handleVerticals)
	mux.HandleFunc("/v1/geo/normalize", s.handleGeoNormalize)
	mux.HandleFunc("/v1/benchmarks/resolve", s.handleBenchmarkResolve)

	// Plan operations
	mux.HandleFunc("/v1/plans/new", s.handleNewPlan)
	mux.HandleFunc("/v1/plans/calculate", s.handleCalculate)
	mux.HandleFunc("/v1/plans/sources", s.handleSource)
	mux.HandleFunc("/v1/plans/geos", s.handleGeo)
	mux.HandleFunc("/v1/plans/rows", s.handleRows)
	mux.HandleFunc("/v1/plans/mode", s.handleMode)
	mux.HandleFunc("/v1/plans/vertical", s.handleVertical)
	mux.HandleFunc("/v1/plans/currency", s.handleCurrency)
	mux.HandleFunc("/v1/plans/export", s.handleExport)

	// Vertical detection
	mux.HandleFunc("/v1/verticals/detect", s.handleDetectVertical)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Health(ctx); err != nil {
			// The cache is optional; lookups fall through to the stores.
			status["redis"] = "unavailable"
		} else {
			status["redis"] = "ok"
		}
	}
	s.jsonResponse(w, status)
}

// ---- Reference Data ----

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.jsonResponse(w, s.currencies.List())
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.jsonResponse(w, geo.Countries())
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.jsonResponse(w, s.planner.Catalog())
}

func (s *Server) handleVerticals(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.jsonResponse(w, models.Verticals)
}

func (s *Server) handleGeoNormalize(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	code := geo.ExtractCode(r.URL.Query().Get("q"))
	if len(code) != 2 {
		s.errorResponse(w, "unrecognized geo", http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, geo.Country{Code: code, Name: s.resolver.Geo().Name(code)})
}

func (s *Server) handleBenchmarkResolve(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()

	query := benchmark.Query{
		Channel:  q.Get("channel"),
		Vertical: models.Vertical(strings.ToLower(q.Get("vertical"))),
		Geo:      geo.ExtractCode(q.Get("geo")),
		Platform: models.Platform(q.Get("platform")),
		Currency: strings.ToUpper(q.Get("currency")),
	}
	if query.Vertical == "" {
		query.Vertical = s.config.Plan.DefaultVertical
	}
	if query.Platform == "" {
		query.Platform = models.PlatformAndroid
	}
	if query.Currency == "" {
		query.Currency = s.config.Plan.DefaultCurrency
	}
	if !s.currencies.Supported(query.Currency) {
		s.errorResponse(w, "unsupported currency: "+query.Currency, http.StatusBadRequest)
		return
	}

	res := s.resolver.Resolve(query)
	res.NoImpressionData = s.resolver.IsNoImpression(q.Get("source"), query.Channel)
	s.jsonResponse(w, struct {
		Query  benchmark.Query  `json:"query"`
		Result benchmark.Result `json:"result"`
	}{query, res})
}

// ---- Plan Operations ----

// planResponse is returned by every plan operation.
type planResponse struct {
	Plan    *models.Plan    `json:"plan"`
	Summary planner.Summary `json:"summary"`
	// Added lists rows created by the operation.
	Added []*models.Row `json:"added,omitempty"`
	// Removed counts rows dropped by the operation.
	Removed int `json:"removed,omitempty"`
}

func (s *Server) handleNewPlan(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	plan := s.planner.Reset()
	s.jsonResponse(w, planResponse{Plan: plan, Summary: s.planner.Summarize(plan)})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var plan models.Plan
	if !s.decode(w, r, &plan) {
		return
	}
	summary, err := s.planner.Calculate(&plan)
	if err != nil {
		s.planError(w, err)
		return
	}
	s.jsonResponse(w, planResponse{Plan: &plan, Summary: summary})
}

type sourceRequest struct {
	Plan   *models.Plan `json:"plan"`
	Source string       `json:"source"`
	Active bool         `json:"active"`
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req sourceRequest
	if !s.decode(w, r, &req) || !s.prepare(w, &req.Plan) {
		return
	}

	resp := planResponse{Plan: req.Plan}
	if req.Active {
		added, err := s.planner.ActivateSource(req.Plan, req.Source)
		if err != nil {
			s.planError(w, err)
			return
		}
		resp.Added = added
	} else {
		resp.Removed = s.planner.DeactivateSource(req.Plan, req.Source)
	}
	resp.Summary = s.planner.Summarize(req.Plan)
	s.jsonResponse(w, resp)
}

type geoRequest struct {
	Plan   *models.Plan `json:"plan"`
	Geo    string       `json:"geo"`
	Active bool         `json:"active"`
}

func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req geoRequest
	if !s.decode(w, r, &req) || !s.prepare(w, &req.Plan) {
		return
	}

	resp := planResponse{Plan: req.Plan}
	if req.Active {
		_, added, err := s.planner.AddGeo(req.Plan, req.Geo)
		if err != nil {
			s.planError(w, err)
			return
		}
		resp.Added = added
	} else {
		resp.Removed = s.planner.RemoveGeo(req.Plan, req.Geo)
	}
	resp.Summary = s.planner.Summarize(req.Plan)
	s.jsonResponse(w, resp)
}

// Row actions accepted by /v1/plans/rows.
const (
	rowActionAdd       = "add"
	rowActionUpdate    = "update"
	rowActionRemove    = "remove"
	rowActionClearRate = "clear_rate"
)

type rowRequest struct {
	Plan   *models.Plan `json:"plan"`
	Action string       `json:"action"`
	RowID  string       `json:"row_id,omitempty"`

	// add
	Channel  string          `json:"channel,omitempty"`
	Platform models.Platform `json:"platform,omitempty"`
	Geo      string          `json:"geo,omitempty"`

	// update
	Update planner.RowUpdate `json:"update"`

	// clear_rate
	Field planner.RateField `json:"field,omitempty"`
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req rowRequest
	if !s.decode(w, r, &req) || !s.prepare(w, &req.Plan) {
		return
	}

	resp := planResponse{Plan: req.Plan}
	var err error
	switch req.Action {
	case rowActionAdd:
		row := s.planner.AddCustomRow(req.Plan, req.Channel, req.Platform, req.Geo)
		resp.Added = []*models.Row{row}
	case rowActionUpdate:
		_, err = s.planner.UpdateRow(req.Plan, req.RowID, req.Update)
	case rowActionRemove:
		err = s.planner.RemoveRow(req.Plan, req.RowID)
		if err == nil {
			resp.Removed = 1
		}
	case rowActionClearRate:
		_, err = s.planner.ClearRate(req.Plan, req.RowID, req.Field)
	default:
		s.errorResponse(w, fmt.Sprintf("unknown row action %q", req.Action), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.planError(w, err)
		return
	}
	resp.Summary = s.planner.Summarize(req.Plan)
	s.jsonResponse(w, resp)
}

type modeRequest struct {
	Plan *models.Plan `json:"plan"`
	Mode string       `json:"mode"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req modeRequest
	if !s.decode(w, r, &req) || !s.prepare(w, &req.Plan) {
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	dropped := len(req.Plan.Rows)
	next, err := s.planner.SetMode(req.Plan, mode)
	if err != nil {
		s.planError(w, err)
		return
	}
	s.jsonResponse(w, planResponse{Plan: next, Summary: s.planner.Summarize(next), Removed: dropped})
}

type verticalRequest struct {
	Plan     *models.Plan    `json:"plan"`
	Vertical models.Vertical `json:"vertical"`
}

func (s *Server) handleVertical(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req verticalRequest
	if !s.decode(w, r, &req) || !s.prepare(w, &req.Plan) {
		return
	}
	if err := s.planner.SetVertical(req.Plan, req.Vertical); err != nil {
		s.planError(w, err)
		return
	}
	s.jsonResponse(w, planResponse{Plan: req.Plan, Summary: s.planner.Summarize(req.Plan)})
}

type currencyRequest struct {
	Plan     *models.Plan `json:"plan"`
	Currency string       `json:"currency"`
}

func (s *Server) handleCurrency(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req currencyRequest
	if !s.decode(w, r, &req) || !s.prepare(w, &req.Plan) {
		return
	}
	if err := s.planner.SetCurrency(req.Plan, req.Currency); err != nil {
		s.planError(w, err)
		return
	}
	s.jsonResponse(w, planResponse{Plan: req.Plan, Summary: s.planner.Summarize(req.Plan)})
}

// handleExport returns the export document, or CSV with ?format=csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var plan models.Plan
	if !s.decode(w, r, &plan) {
		return
	}
	summary, err := s.planner.Calculate(&plan)
	if err != nil {
		s.planError(w, err)
		return
	}
	doc := export.Build(&plan, summary, s.currencies)

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		s.jsonResponse(w, doc)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(&plan)+`"`)
		if err := export.WriteCSV(w, doc); err != nil {
			s.logger.Error("csv export failed", zap.Error(err))
		}
	default:
		s.errorResponse(w, "format must be json or csv", http.StatusBadRequest)
	}
}

func exportFilename(plan *models.Plan) string {
	name := strings.TrimSpace(plan.Client)
	if name == "" {
		return "mediaplan.csv"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "mediaplan.csv"
	}
	return "mediaplan_" + b.String() + ".csv"
}

// ---- Vertical Detection ----

type detectRequest struct {
	URL string `json:"url"`
}

type detectResponse struct {
	Vertical models.Vertical `json:"vertical"`
	AppName  string          `json:"app_name"`
	Category string          `json:"category,omitempty"`
	Store    appmeta.Store   `json:"store,omitempty"`
	Detected bool            `json:"detected"`
}

func (s *Server) handleDetectVertical(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req detectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.errorResponse(w, "url is required", http.StatusBadRequest)
		return
	}
	if s.appMeta == nil {
		s.jsonResponse(w, detectResponse{Vertical: models.VerticalOther})
		return
	}

	info := s.appMeta.Detect(r.Context(), req.URL)
	s.jsonResponse(w, detectResponse{
		Vertical: info.Vertical,
		AppName:  info.Name,
		Category: info.Category,
		Store:    info.Store,
		Detected: info.Vertical != models.VerticalOther,
	})
}

// ---- Helper Methods ----

func (s *Server) allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if limit := s.config.Server.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// prepare brings a posted plan up to date before an operation runs on it.
// A missing plan starts from the defaults.
func (s *Server) prepare(w http.ResponseWriter, plan **models.Plan) bool {
	if *plan == nil {
		*plan = s.planner.NewPlan()
		return true
	}
	if _, err := s.planner.Calculate(*plan); err != nil {
		s.planError(w, err)
		return false
	}
	return true
}

func (s *Server) planError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrRowNotFound):
		s.errorResponse(w, err.Error(), http.StatusNotFound)
	default:
		// Every other planner error is caused by the posted document.
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
