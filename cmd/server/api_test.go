package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/alerts"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/cache"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/generator"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/kpi"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/seed"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage/memory"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/stream"
)

type fixedStatus struct{ st generator.Status }

func (f fixedStatus) Status() generator.Status { return f.st }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	catalog := domain.DefaultCatalog(3, 4)

	events := memory.NewSalesEventStore()
	_, err := seed.Run(context.Background(), events, nil, seed.Options{
		Catalog: catalog,
		Days:    30,
		Seed:    1,
		Logger:  quiet,
	})
	require.NoError(t, err)

	c := cache.New(cache.NewMemoryBackend(nil), cache.Options{Logger: quiet})
	b := bus.New(bus.Options{})
	alertGen := alerts.NewGenerator(events, catalog, alerts.Options{Logger: quiet})

	a := &api{
		events: events,
		kpis:   kpi.NewService(events, events, alertGen, catalog, kpi.Options{Cache: c}),
		alerts: alertGen,
		cache:  c,
		bus:    b,
		fanout: stream.NewFanout(b, stream.Options{Logger: quiet}),
		generator: fixedStatus{generator.Status{
			Market:      domain.MarketState{Sentiment: 1.6, Volatility: 1.1},
			Generated:   7,
			LastEventAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		}},
		catalog: catalog,
		mode:    "memory",
		started: time.Now(),
	}

	srv := httptest.NewServer(a.routes(stream.WSOptions{}))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)

	var st StatusResponse
	resp := getJSON(t, srv.URL+"/status", &st)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "running", st.Status)
	assert.Equal(t, "memory", st.Mode)
	assert.Equal(t, uint64(7), st.Generated)
	assert.Equal(t, string(domain.RegimeOptimistic), st.Market.Regime)
	require.NotNil(t, st.LastEventAt)
	assert.Equal(t, map[string]int{bus.ChannelSales: 0, bus.ChannelAlerts: 0, bus.ChannelInventory: 0}, st.Subscribers)
}

func TestLatest(t *testing.T) {
	srv := newTestServer(t)

	var events []EventResponse
	resp := getJSON(t, srv.URL+"/api/latest", &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, events, defaultLatestLimit)
	assert.NotEmpty(t, events[0].LocationName)
	assert.NotEmpty(t, events[0].ProductName)

	resp = getJSON(t, srv.URL+"/api/latest?limit=500", &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, events, maxLatestLimit)

	resp = getJSON(t, srv.URL+"/api/latest?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = getJSON(t, srv.URL+"/api/latest?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKPIs_Cached(t *testing.T) {
	srv := newTestServer(t)

	var first KPIResponse
	resp := getJSON(t, srv.URL+"/api/kpis", &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"))
	assert.Equal(t, 3, first.UniqueLocations)
	assert.Equal(t, 4, first.UniqueProducts)
	assert.Equal(t, 30*3*4, first.HistoricalCount)
	assert.Contains(t, []string{domain.TrendUp, domain.TrendDown, domain.TrendStable}, first.Trend)

	var second KPIResponse
	resp = getJSON(t, srv.URL+"/api/kpis", &second)
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))
	assert.Equal(t, first.TotalMonth, second.TotalMonth)

	resp = getJSON(t, srv.URL+"/api/kpis?location_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	var cats []CategoryResponse
	resp := getJSON(t, srv.URL+"/api/kpis/categories", &cats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, cats, 4, "one category per product in the 4-product catalog")
	for _, c := range cats {
		assert.Equal(t, 1, c.Products)
		assert.Regexp(t, `^\d+\.\d{2}$`, c.StockValue)
	}
}

func TestAlerts(t *testing.T) {
	srv := newTestServer(t)

	var summary alerts.SummaryPayload
	resp := getJSON(t, srv.URL+"/api/alerts/summary", &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, summary.Critical+summary.Warning+summary.Info, summary.TotalActive)

	var all []alerts.AlertPayload
	resp = getJSON(t, srv.URL+"/api/alerts", &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, all, summary.TotalActive)

	var warnings []alerts.AlertPayload
	resp = getJSON(t, srv.URL+"/api/alerts?severity=warning", &warnings)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, warnings, summary.Warning)
	for _, a := range warnings {
		assert.Equal(t, string(domain.SeverityWarning), a.Severity)
	}

	resp = getJSON(t, srv.URL+"/api/alerts?severity=warning", &warnings)
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))
}

func TestStream_UnknownChannel(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+"/stream/orders", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = getJSON(t, srv.URL+"/ws/orders", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
