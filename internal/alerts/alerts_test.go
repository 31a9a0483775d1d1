package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/cache"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func today() time.Time {
	return domain.Day(testNow)
}

// record writes one aggregate row per day for days [from, to] days ago.
func record(t *testing.T, store *memory.DailySalesStore, loc, prod int, daysAgoFrom, daysAgoTo int, qty func(daysAgo int) int) {
	t.Helper()
	var events []*domain.SalesEvent
	for d := daysAgoFrom; d >= daysAgoTo; d-- {
		events = append(events, &domain.SalesEvent{
			Date:       today().AddDate(0, 0, -d),
			LocationID: loc,
			ProductID:  prod,
			Quantity:   qty(d),
		})
	}
	require.NoError(t, store.Record(context.Background(), events))
}

func constant(v int) func(int) int {
	return func(int) int { return v }
}

func newTestGenerator(reader storage.DailySalesReader) *Generator {
	return NewGenerator(reader, domain.DefaultCatalog(10, 50), Options{
		Now:    func() time.Time { return testNow },
		Logger: quietLogger(),
	})
}

func TestEstimateInventory_Tiers(t *testing.T) {
	tests := []struct {
		name                   string
		total                  int
		avg                    float64
		qty, reorder, maxStock int
		status                 string
	}{
		{"fast healthy", 1800, 60, 320, 100, 600, domain.StockInStock},
		{"fast low", 4500, 60, 50, 100, 600, domain.StockLow},
		{"fast at zero", 5000, 60, 0, 100, 600, domain.StockOut},
		{"fast floored", 6000, 60, 0, 100, 600, domain.StockOut},
		{"medium", 900, 30, 240, 50, 400, domain.StockInStock},
		{"slow", 300, 10, 185, 25, 250, domain.StockInStock},
		{"boundary 50 is medium", 1500, 50, 200, 50, 400, domain.StockInStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, reorder, maxStock := EstimateInventory(tt.total, tt.avg)
			assert.Equal(t, tt.qty, qty)
			assert.Equal(t, tt.reorder, reorder)
			assert.Equal(t, tt.maxStock, maxStock)
			assert.Equal(t, tt.status, StockStatus(qty, reorder, maxStock))
		})
	}

	assert.Equal(t, domain.StockOverstocked, StockStatus(700, 100, 600))
}

func TestLowStock(t *testing.T) {
	store := memory.NewDailySalesStore()
	record(t, store, 1, 1, 29, 0, constant(170)) // total 5100 -> 0 on hand
	record(t, store, 2, 3, 29, 0, constant(150)) // total 4500 -> 50 on hand
	record(t, store, 3, 4, 29, 0, constant(10))  // total 300 -> 185 on hand

	g := newTestGenerator(store)
	alerts, err := g.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	out := alerts[0]
	assert.Equal(t, domain.SeverityCritical, out.Severity)
	assert.Equal(t, "Out of Stock: Basmati Rice 5kg", out.Title)
	assert.Equal(t, "Basmati Rice 5kg at Lulu Hypermarket Al Barsha has only 0 units remaining (reorder level: 100)", out.Message)
	assert.Equal(t, domain.AlertCategoryInventory, out.Category)
	assert.Equal(t, domain.AlertActive, out.Status)
	require.NotNil(t, out.ProductID)
	assert.Equal(t, 1, *out.ProductID)
	assert.Equal(t, 0, *out.Quantity)

	low := alerts[1]
	assert.Equal(t, domain.SeverityWarning, low.Severity)
	assert.True(t, strings.HasPrefix(low.Title, "Low Stock: "))
	assert.Equal(t, 50, *low.Quantity)
}

func TestLowStock_Limit(t *testing.T) {
	store := memory.NewDailySalesStore()
	for p := 1; p <= 15; p++ {
		record(t, store, 1, p, 29, 0, constant(200))
	}

	g := newTestGenerator(store)
	alerts, err := g.LowStock(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 10)
}

func TestVolumeAnomalies(t *testing.T) {
	week := []int{10, 12, 11, 9, 10, 11, 12}
	fromWeek := func(latest int) func(int) int {
		return func(d int) int {
			if d == 0 {
				return latest
			}
			return week[d-1]
		}
	}

	store := memory.NewDailySalesStore()
	record(t, store, 1, 2, 7, 0, fromWeek(40)) // high
	record(t, store, 1, 3, 7, 0, fromWeek(2))  // low
	record(t, store, 1, 4, 5, 0, fromWeek(40)) // less than a full week
	record(t, store, 1, 5, 7, 0, constant(10)) // no spread
	record(t, store, 1, 6, 7, 1, fromWeek(0))  // nothing on the latest day
	record(t, store, 1, 7, 7, 0, fromWeek(12)) // within 2 sigma

	g := newTestGenerator(store)
	alerts, err := g.VolumeAnomalies(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	high := alerts[0]
	assert.Equal(t, domain.SeverityInfo, high.Severity)
	assert.Equal(t, "High Sales Alert: Arabic Bread", high.Title)
	assert.Equal(t, "Arabic Bread at Lulu Hypermarket Al Barsha had unusually high sales (40 vs avg 11)", high.Message)
	assert.Equal(t, domain.AlertCategorySales, high.Category)

	low := alerts[1]
	assert.Equal(t, domain.SeverityWarning, low.Severity)
	assert.True(t, strings.HasPrefix(low.Title, "Low Sales Alert: "))
	assert.Equal(t, 2, *low.Quantity)
}

func TestVolumeAnomalies_EmptyStore(t *testing.T) {
	g := newTestGenerator(memory.NewDailySalesStore())
	alerts, err := g.VolumeAnomalies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestStoreTrends(t *testing.T) {
	store := memory.NewDailySalesStore()
	week := func(prior, this int) func(int) int {
		return func(d int) int {
			if d >= 7 {
				return prior
			}
			return this
		}
	}
	record(t, store, 5, 1, 13, 0, week(100, 130)) // +30%
	record(t, store, 6, 1, 13, 0, week(100, 90))  // -10%
	record(t, store, 7, 1, 13, 0, week(100, 50))  // -50%
	record(t, store, 8, 1, 6, 0, constant(100))   // no prior week
	record(t, store, 9, 1, 20, 14, constant(100)) // outside both windows

	g := newTestGenerator(store)
	alerts, err := g.StoreTrends(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	up := alerts[0]
	assert.Equal(t, 5, up.LocationID)
	assert.Equal(t, domain.SeverityInfo, up.Severity)
	assert.Equal(t, "Store Performance: Lulu Hypermarket Al Wahda", up.Title)
	assert.Equal(t, "Lulu Hypermarket Al Wahda sales increased by 30.0% this week", up.Message)
	assert.Nil(t, up.ProductID)

	down := alerts[1]
	assert.Equal(t, 7, down.LocationID)
	assert.Equal(t, domain.SeverityWarning, down.Severity)
	assert.Contains(t, down.Message, "decreased by 50.0%")
}

type panickyReader struct {
	*memory.DailySalesStore
}

func (panickyReader) LatestDate(context.Context) (time.Time, error) {
	panic("driver bug")
}

func TestGenerate_DetectorIsolation(t *testing.T) {
	store := memory.NewDailySalesStore()
	record(t, store, 1, 1, 29, 0, constant(170))
	record(t, store, 5, 1, 13, 0, func(d int) int {
		if d >= 7 {
			return 100
		}
		return 200
	})

	g := newTestGenerator(panickyReader{store})
	alerts := g.Generate(context.Background())

	categories := map[string]int{}
	for _, a := range alerts {
		categories[a.Category]++
	}
	assert.Positive(t, categories[domain.AlertCategoryInventory], "low stock survives the volume detector panic")
	assert.Positive(t, categories[domain.AlertCategorySales], "store trend survives the volume detector panic")
}

func TestGenerate_StableIDs(t *testing.T) {
	store := memory.NewDailySalesStore()
	record(t, store, 1, 1, 29, 0, constant(170))

	g := newTestGenerator(store)
	first := g.Generate(context.Background())
	second := g.Generate(context.Background())
	require.NotEmpty(t, first)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Len(t, first[0].ID, 64)
}

func TestSummarizeAndFilter(t *testing.T) {
	alerts := []domain.Alert{
		{ID: "a", Severity: domain.SeverityCritical, Category: domain.AlertCategoryInventory, Status: domain.AlertActive, LocationID: 1},
		{ID: "b", Severity: domain.SeverityWarning, Category: domain.AlertCategoryInventory, Status: domain.AlertActive, LocationID: 2},
		{ID: "c", Severity: domain.SeverityWarning, Category: domain.AlertCategorySales, Status: domain.AlertActive, LocationID: 1},
		{ID: "d", Severity: domain.SeverityInfo, Category: domain.AlertCategorySales, Status: domain.AlertActive, LocationID: 3},
		{ID: "e", Severity: domain.SeverityCritical, Category: domain.AlertCategorySales, Status: domain.AlertResolved, LocationID: 3},
	}

	s := Summarize(alerts)
	assert.Equal(t, domain.AlertSummary{Total: 4, Critical: 1, Warning: 2, Info: 1}, s)

	assert.Len(t, Filter{Severity: domain.SeverityWarning}.Apply(alerts), 2)
	assert.Len(t, Filter{Category: domain.AlertCategorySales, LocationID: 3}.Apply(alerts), 2)
	assert.Len(t, Filter{Status: domain.AlertResolved}.Apply(alerts), 1)
	assert.Len(t, Filter{}.Apply(alerts), 5)
}

func TestPublisher_RunOnce(t *testing.T) {
	store := memory.NewDailySalesStore()
	record(t, store, 1, 1, 29, 0, constant(170))
	record(t, store, 3, 4, 29, 0, constant(10))

	b := bus.New(bus.Options{})
	alertSub, err := b.Subscribe(bus.ChannelAlerts)
	require.NoError(t, err)
	invSub, err := b.Subscribe(bus.ChannelInventory)
	require.NoError(t, err)

	backend := cache.NewMemoryBackend(nil)
	c := cache.New(backend, cache.Options{Logger: quietLogger()})
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, c.Key("alerts_summary", nil), 1, time.Minute))
	require.NoError(t, c.Set(ctx, c.Key("inventory_items", nil), 1, time.Minute))

	g := newTestGenerator(store)
	p := NewPublisher(g, b, PublisherOptions{Cache: c, Logger: quietLogger()})

	published, updates := p.RunOnce(ctx)
	assert.Equal(t, 1, published)
	assert.Equal(t, 0, updates, "first pass only records the inventory baseline")
	assert.Equal(t, cache.Miss, c.Get(ctx, c.Key("alerts_summary", nil)).Status)
	assert.Equal(t, cache.Hit, c.Get(ctx, c.Key("inventory_items", nil)).Status)

	msg, err := alertSub.Receive(ctx, time.Second)
	require.NoError(t, err)
	var payload AlertPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "critical", payload.Severity)
	assert.Equal(t, "Lulu Hypermarket Al Barsha", payload.LocationName)

	published, updates = p.RunOnce(ctx)
	assert.Equal(t, 0, published, "already seen")
	assert.Equal(t, 0, updates)

	// A late-recorded sale three weeks back moves the estimate for (3, 4)
	// without touching the trend or anomaly windows.
	record(t, store, 3, 4, 20, 20, constant(20))
	published, updates = p.RunOnce(ctx)
	assert.Equal(t, 0, published)
	assert.Equal(t, 1, updates)
	assert.Equal(t, cache.Miss, c.Get(ctx, c.Key("inventory_items", nil)).Status)

	msg, err = invSub.Receive(ctx, time.Second)
	require.NoError(t, err)
	var inv InventoryPayload
	require.NoError(t, json.Unmarshal(msg.Data, &inv))
	assert.Equal(t, 4, inv.ProductID)
	assert.Equal(t, "Dairy", inv.Category)
	assert.Equal(t, "inv-3-4", inv.ID)
	assert.True(t, inv.UnitCost.IsPositive())
}

// flakyReader fails LatestDate, and with it the volume detector, while down is set.
type flakyReader struct {
	*memory.DailySalesStore
	down bool
}

func (r *flakyReader) LatestDate(ctx context.Context) (time.Time, error) {
	if r.down {
		return time.Time{}, errors.New("connection reset")
	}
	return r.DailySalesStore.LatestDate(ctx)
}

func TestPublisher_DetectorOutageDoesNotRepublish(t *testing.T) {
	week := []int{10, 12, 11, 9, 10, 11, 12}
	store := memory.NewDailySalesStore()
	record(t, store, 1, 2, 7, 0, func(d int) int {
		if d == 0 {
			return 40
		}
		return week[d-1]
	})
	reader := &flakyReader{DailySalesStore: store}

	b := bus.New(bus.Options{})
	p := NewPublisher(newTestGenerator(reader), b, PublisherOptions{Logger: quietLogger()})
	ctx := context.Background()

	det := p.gen.Detect(ctx)
	require.Empty(t, det.Failed)
	require.Contains(t, det.Sources, det.Alerts[0].ID)

	first, _ := p.RunOnce(ctx)
	require.GreaterOrEqual(t, first, 2, "volume anomaly and store trend")

	reader.down = true
	published, _ := p.RunOnce(ctx)
	assert.Equal(t, 0, published)

	reader.down = false
	published, _ = p.RunOnce(ctx)
	assert.Equal(t, 0, published, "alerts from the recovered detector were already published")
}

// countingReader counts daily-sales reads starting at a given day.
type countingReader struct {
	*memory.DailySalesStore
	start time.Time
	reads int
}

func (r *countingReader) GetDailySales(ctx context.Context, start, end time.Time) ([]domain.DailySales, error) {
	if start.Equal(r.start) {
		r.reads++
	}
	return r.DailySalesStore.GetDailySales(ctx, start, end)
}

func TestPublisher_ReadsInventoryWindowOncePerPass(t *testing.T) {
	store := memory.NewDailySalesStore()
	record(t, store, 1, 1, 29, 0, constant(170))
	reader := &countingReader{
		DailySalesStore: store,
		start:           today().AddDate(0, 0, -InventoryWindowDays),
	}

	p := NewPublisher(newTestGenerator(reader), bus.New(bus.Options{}), PublisherOptions{Logger: quietLogger()})
	published, _ := p.RunOnce(context.Background())
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, reader.reads)
	assert.Len(t, p.inventory, 1, "baseline taken from the low-stock read")
}
