package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/alerts"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/cache"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/generator"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/kpi"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/stream"
)

const (
	defaultLatestLimit = 20
	maxLatestLimit     = 100
)

// Cache operations owned by the API.
const (
	opAlertsList    = "alerts_list"
	opAlertsSummary = "alerts_summary"
)

// statusSource reports generator progress.
type statusSource interface {
	Status() generator.Status
}

// api serves the HTTP surface.
type api struct {
	events    storage.SalesEventStore
	kpis      *kpi.Service
	alerts    *alerts.Generator
	cache     *cache.Cache
	bus       *bus.Bus
	fanout    *stream.Fanout
	generator statusSource
	catalog   domain.Catalog
	mode      string
	started   time.Time
}

func (a *api) routes(ws stream.WSOptions) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", a.handleStatus)

	mux.Handle("GET /stream/{channel}", stream.NewSSEHandler(a.fanout))
	mux.Handle("GET /ws/{channel}", stream.NewWSHandler(a.fanout, ws))

	mux.HandleFunc("GET /api/latest", a.handleLatest)
	mux.HandleFunc("GET /api/kpis", a.handleKPIs)
	mux.HandleFunc("GET /api/kpis/categories", a.handleCategories)
	mux.HandleFunc("GET /api/alerts", a.handleAlerts)
	mux.HandleFunc("GET /api/alerts/summary", a.handleAlertsSummary)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// cacheHeader exposes the lookup outcome for debugging.
func cacheHeader(w http.ResponseWriter, s cache.Status) {
	w.Header().Set("X-Cache", s.String())
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status      string         `json:"status"`
	Mode        string         `json:"mode"`
	Uptime      string         `json:"uptime"`
	StartedAt   time.Time      `json:"started_at"`
	Generated   uint64         `json:"events_generated"`
	Failed      uint64         `json:"ticks_failed"`
	LastEventAt *time.Time     `json:"last_event_at,omitempty"`
	Market      MarketResponse `json:"market"`
	Subscribers map[string]int `json:"subscribers"`
}

// MarketResponse describes the market model.
type MarketResponse struct {
	Sentiment  float64   `json:"sentiment"`
	Volatility float64   `json:"volatility"`
	Regime     string    `json:"regime"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := a.generator.Status()

	resp := StatusResponse{
		Status:    "running",
		Mode:      a.mode,
		Uptime:    time.Since(a.started).Round(time.Second).String(),
		StartedAt: a.started,
		Generated: st.Generated,
		Failed:    st.Failed,
		Market: MarketResponse{
			Sentiment:  st.Market.Sentiment,
			Volatility: st.Market.Volatility,
			Regime:     string(st.Market.Regime()),
			UpdatedAt:  st.Market.UpdatedAt,
		},
		Subscribers: make(map[string]int, len(bus.DefaultChannels)),
	}
	if !st.LastEventAt.IsZero() {
		resp.LastEventAt = &st.LastEventAt
	}
	for _, ch := range bus.DefaultChannels {
		resp.Subscribers[ch] = a.bus.Subscribers(ch)
	}
	writeJSON(w, http.StatusOK, resp)
}

// EventResponse is one stored sales event.
type EventResponse struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	LocationID   int       `json:"location_id"`
	LocationName string    `json:"location_name"`
	ProductID    int       `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	IsStreaming  bool      `json:"is_streaming"`
	Category     string    `json:"transaction_category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *api) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit := defaultLatestLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLatestLimit)
	}

	events, err := a.events.GetLatest(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:           e.ID,
			Date:         e.Date.Format(time.DateOnly),
			LocationID:   e.LocationID,
			LocationName: a.catalog.LocationName(e.LocationID),
			ProductID:    e.ProductID,
			ProductName:  a.catalog.Product(e.ProductID).Name,
			Quantity:     e.Quantity,
			IsStreaming:  e.IsStreaming,
			Category:     string(e.Category),
			CreatedAt:    e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// KPIResponse is the dashboard headline view.
type KPIResponse struct {
	TotalToday      int        `json:"total_sales_today"`
	TotalWeek       int        `json:"total_sales_week"`
	TotalMonth      int        `json:"total_sales_month"`
	AvgDaily        float64    `json:"average_daily_sales"`
	UniqueLocations int        `json:"unique_locations"`
	UniqueProducts  int        `json:"unique_products"`
	HistoricalCount int        `json:"historical_records_count"`
	StreamingCount  int        `json:"streaming_records_count"`
	FirstDate       string     `json:"first_date,omitempty"`
	LastDate        string     `json:"last_date,omitempty"`
	LastStreamedAt  *time.Time `json:"last_streamed_at,omitempty"`
	Trend           string     `json:"sales_trend"`
	TrendPercentage float64    `json:"trend_percentage"`
	ComputedAt      time.Time  `json:"computed_at"`
}

func newKPIResponse(k domain.KPISummary) KPIResponse {
	resp := KPIResponse{
		TotalToday:      k.TotalToday,
		TotalWeek:       k.TotalWeek,
		TotalMonth:      k.TotalMonth,
		AvgDaily:        k.AvgDaily,
		UniqueLocations: k.UniqueLocations,
		UniqueProducts:  k.UniqueProducts,
		HistoricalCount: k.HistoricalCount,
		StreamingCount:  k.StreamingCount,
		Trend:           k.Trend,
		TrendPercentage: k.TrendPercentage,
		ComputedAt:      k.ComputedAt,
	}
	if !k.FirstDate.IsZero() {
		resp.FirstDate = k.FirstDate.Format(time.DateOnly)
		resp.LastDate = k.LastDate.Format(time.DateOnly)
	}
	if !k.LastStreamedAt.IsZero() {
		resp.LastStreamedAt = &k.LastStreamedAt
	}
	return resp
}

// queryInt reads an optional non-negative integer parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (a *api) handleKPIs(w http.ResponseWriter, r *http.Request) {
	loc, ok := queryInt(r, "location_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid location_id")
		return
	}
	prod, ok := queryInt(r, "product_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product_id")
		return
	}

	k, status, err := a.kpis.Summary(r.Context(), kpi.Scope{LocationID: loc, ProductID: prod})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute kpis")
		return
	}
	cacheHeader(w, status)
	writeJSON(w, http.StatusOK, newKPIResponse(k))
}

// CategoryResponse is one row of the category breakdown.
type CategoryResponse struct {
	Category   string `json:"category"`
	Quantity   int    `json:"total_sold"`
	Products   int    `json:"product_count"`
	StockValue string `json:"stock_value"`
}

func (a *api) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, status, err := a.kpis.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute categories")
		return
	}

	out := make([]CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryResponse{
			Category:   c.Category,
			Quantity:   c.Quantity,
			Products:   c.Products,
			StockValue: c.StockValue.StringFixed(2),
		})
	}
	cacheHeader(w, status)
	writeJSON(w, http.StatusOK, out)
}

func (a *api) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, ok := queryInt(r, "location_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid location_id")
		return
	}
	filter := alerts.Filter{
		Severity:   domain.Severity(q.Get("severity")),
		Category:   q.Get("category"),
		Status:     domain.AlertStatus(q.Get("status")),
		LocationID: loc,
	}
	params := map[string]any{
		"severity":    string(filter.Severity),
		"category":    filter.Category,
		"status":      string(filter.Status),
		"location_id": filter.LocationID,
	}

	list, status, err := cache.GetOrCompute(r.Context(), a.cache, opAlertsList, params, func(ctx context.Context) ([]alerts.AlertPayload, error) {
		matched := filter.Apply(a.alerts.Generate(ctx))
		out := make([]alerts.AlertPayload, 0, len(matched))
		for _, al := range matched {
			out = append(out, alerts.NewAlertPayload(al))
		}
		return out, nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate alerts")
		return
	}
	cacheHeader(w, status)
	writeJSON(w, http.StatusOK, list)
}

func (a *api) handleAlertsSummary(w http.ResponseWriter, r *http.Request) {
	summary, status, err := cache.GetOrCompute(r.Context(), a.cache, opAlertsSummary, nil, func(ctx context.Context) (alerts.SummaryPayload, error) {
		return alerts.NewSummaryPayload(alerts.Summarize(a.alerts.Generate(ctx))), nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize alerts")
		return
	}
	cacheHeader(w, status)
	writeJSON(w, http.StatusOK, summary)
}
