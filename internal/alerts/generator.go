// Package alerts derives operational alerts from recent daily sales.
//
// Three detectors run independently: low stock, volume anomaly and store
// trend. Each performs its own reads so one failing query (or panic) only
// drops that detector's alerts from a run.
package alerts

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/idhash"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// Detector names.
const (
	DetectorLowStock   = "low_stock"
	DetectorVolume     = "volume_anomaly"
	DetectorStoreTrend = "store_trend"
)

// Options configures a Generator.
type Options struct {
	LowStockLimit int // default 10
	AnomalyLimit  int // default 5
	Now           func() time.Time
	Logger        *log.Logger
}

// Generator runs the alert detectors against a daily sales reader.
type Generator struct {
	reader        storage.DailySalesReader
	catalog       domain.Catalog
	lowStockLimit int
	anomalyLimit  int
	now           func() time.Time
	logger        *log.Logger
}

// NewGenerator creates an alert generator.
func NewGenerator(reader storage.DailySalesReader, catalog domain.Catalog, opts Options) *Generator {
	lowStock := opts.LowStockLimit
	if lowStock <= 0 {
		lowStock = 10
	}
	anomaly := opts.AnomalyLimit
	if anomaly <= 0 {
		anomaly = 5
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		reader:        reader,
		catalog:       catalog,
		lowStockLimit: lowStock,
		anomalyLimit:  anomaly,
		now:           now,
		logger:        logger,
	}
}

// Detection is the outcome of one pass over every detector.
type Detection struct {
	Alerts  []domain.Alert
	Sources map[string]string // alert id -> detector
	Failed  map[string]error  // detector -> error

	// Inventory holds the estimates read by the low-stock detector, nil
	// when that read failed.
	Inventory []domain.InventorySnapshot
}

// Detect runs every detector once. A failing detector is logged and listed
// in Failed; the others still contribute.
func (g *Generator) Detect(ctx context.Context) Detection {
	d := Detection{
		Sources: make(map[string]string),
		Failed:  make(map[string]error),
	}

	lowStock := func(ctx context.Context) ([]domain.Alert, error) {
		snaps, err := g.Inventory(ctx)
		if err != nil {
			return nil, err
		}
		d.Inventory = snaps
		return g.lowStockFrom(snaps), nil
	}

	detectors := []struct {
		name string
		run  func(context.Context) ([]domain.Alert, error)
	}{
		{DetectorLowStock, lowStock},
		{DetectorVolume, g.VolumeAnomalies},
		{DetectorStoreTrend, g.StoreTrends},
	}

	for _, det := range detectors {
		alerts, err := g.runDetector(ctx, det.name, det.run)
		observability.RecordDetectorRun(det.name, err)
		if err != nil {
			g.logger.Printf("detector %s failed: %v", det.name, err)
			d.Failed[det.name] = err
			continue
		}
		for _, a := range alerts {
			observability.RecordAlert(string(a.Severity))
			d.Sources[a.ID] = det.name
		}
		d.Alerts = append(d.Alerts, alerts...)
	}
	return d
}

// Generate returns the union of every detector that succeeded, in detector order.
func (g *Generator) Generate(ctx context.Context) []domain.Alert {
	return g.Detect(ctx).Alerts
}

func (g *Generator) runDetector(ctx context.Context, name string, run func(context.Context) ([]domain.Alert, error)) (alerts []domain.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alerts, err = nil, fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return run(ctx)
}

type alertFields struct {
	title    string
	message  string
	category string
	severity domain.Severity
	location int
	product  int // 0 for store-level alerts
	quantity *int
	day      time.Time
}

func (g *Generator) newAlert(detector string, f alertFields) domain.Alert {
	a := domain.Alert{
		ID:           idhash.ComputeAlertID(detector, f.location, f.product, f.day),
		Title:        f.title,
		Message:      f.message,
		Category:     f.category,
		Severity:     f.severity,
		Status:       domain.AlertActive,
		LocationID:   f.location,
		LocationName: g.catalog.LocationName(f.location),
		Quantity:     f.quantity,
		CreatedAt:    g.now().UTC(),
	}
	if f.product > 0 {
		id := f.product
		name := g.catalog.Product(f.product).Name
		a.ProductID = &id
		a.ProductName = &name
	}
	return a
}

// Summarize counts active alerts by severity.
func Summarize(alerts []domain.Alert) domain.AlertSummary {
	var s domain.AlertSummary
	for _, a := range alerts {
		if a.Status != domain.AlertActive {
			continue
		}
		switch a.Severity {
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityWarning:
			s.Warning++
		case domain.SeverityInfo:
			s.Info++
		}
	}
	s.Total = s.Critical + s.Warning + s.Info
	return s
}

// Filter selects alerts. Zero-valued fields match everything.
type Filter struct {
	Severity   domain.Severity
	Category   string
	Status     domain.AlertStatus
	LocationID int
}

// Apply returns the alerts matching f, preserving order.
func (f Filter) Apply(alerts []domain.Alert) []domain.Alert {
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.LocationID != 0 && a.LocationID != f.LocationID {
			continue
		}
		out = append(out, a)
	}
	return out
}
