package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

const (
	anomalySigma     = 2.0
	trendThreshold   = 15.0 // percent
	trailingWeekDays = 7
)

// VolumeAnomalies flags pairs whose latest-day quantity deviates from the
// preceding full week by more than two sample standard deviations.
func (g *Generator) VolumeAnomalies(ctx context.Context) ([]domain.Alert, error) {
	latest, err := g.reader.LatestDate(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sales date: %w", err)
	}
	latest = domain.Day(latest)

	rows, err := g.reader.GetDailySales(ctx, latest.AddDate(0, 0, -trailingWeekDays), latest)
	if err != nil {
		return nil, fmt.Errorf("read trailing week: %w", err)
	}

	type series struct {
		week    map[time.Time]int
		current int
		hasDay  bool
	}
	byPair := make(map[pairKey]*series)
	for _, r := range rows {
		k := pairKey{r.LocationID, r.ProductID}
		s, ok := byPair[k]
		if !ok {
			s = &series{week: make(map[time.Time]int, trailingWeekDays)}
			byPair[k] = s
		}
		day := domain.Day(r.Date)
		if day.Equal(latest) {
			s.current += r.Quantity
			s.hasDay = true
		} else {
			s.week[day] += r.Quantity
		}
	}

	type finding struct {
		key          pairKey
		value        int
		mean, stddev float64
		sigmas       float64
	}
	var found []finding
	for k, s := range byPair {
		if !s.hasDay || len(s.week) < trailingWeekDays {
			continue
		}
		mean, stddev := meanStdDev(s.week)
		if stddev <= 0 {
			continue
		}
		dev := math.Abs(float64(s.current) - mean)
		if dev > anomalySigma*stddev {
			found = append(found, finding{k, s.current, mean, stddev, dev / stddev})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].sigmas != found[j].sigmas {
			return found[i].sigmas > found[j].sigmas
		}
		if found[i].key.locationID != found[j].key.locationID {
			return found[i].key.locationID < found[j].key.locationID
		}
		return found[i].key.productID < found[j].key.productID
	})
	if len(found) > g.anomalyLimit {
		found = found[:g.anomalyLimit]
	}

	out := make([]domain.Alert, 0, len(found))
	for _, f := range found {
		product := g.catalog.Product(f.key.productID).Name
		location := g.catalog.LocationName(f.key.locationID)

		high := float64(f.value) > f.mean
		kind, severity, adjective := "Low", domain.SeverityWarning, "unusually low"
		if high {
			kind, severity, adjective = "High", domain.SeverityInfo, "unusually high"
		}

		value := f.value
		out = append(out, g.newAlert(DetectorVolume, alertFields{
			title:    fmt.Sprintf("%s Sales Alert: %s", kind, product),
			message:  fmt.Sprintf("%s at %s had %s sales (%d vs avg %.0f)", product, location, adjective, f.value, f.mean),
			category: domain.AlertCategorySales,
			severity: severity,
			location: f.key.locationID,
			product:  f.key.productID,
			quantity: &value,
			day:      latest,
		}))
	}
	return out, nil
}

// meanStdDev returns the mean and sample standard deviation.
func meanStdDev(values map[time.Time]int) (float64, float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / n
	if len(values) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := float64(v) - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// StoreTrends compares each location's last 7 days with the 7 days before.
func (g *Generator) StoreTrends(ctx context.Context) ([]domain.Alert, error) {
	today := domain.Day(g.now())
	weekStart := today.AddDate(0, 0, -(trailingWeekDays - 1))
	rows, err := g.reader.GetDailySales(ctx, weekStart.AddDate(0, 0, -trailingWeekDays), today)
	if err != nil {
		return nil, fmt.Errorf("read two-week sales: %w", err)
	}

	type weeks struct{ this, last int }
	byLocation := make(map[int]*weeks)
	for _, r := range rows {
		w, ok := byLocation[r.LocationID]
		if !ok {
			w = &weeks{}
			byLocation[r.LocationID] = w
		}
		if domain.Day(r.Date).Before(weekStart) {
			w.last += r.Quantity
		} else {
			w.this += r.Quantity
		}
	}

	locations := make([]int, 0, len(byLocation))
	for id := range byLocation {
		locations = append(locations, id)
	}
	sort.Ints(locations)

	var out []domain.Alert
	for _, id := range locations {
		w := byLocation[id]
		if w.last <= 0 {
			continue
		}
		change := float64(w.this-w.last) / float64(w.last) * 100
		if math.Abs(change) <= trendThreshold {
			continue
		}

		name := g.catalog.LocationName(id)
		direction, severity := "decreased", domain.SeverityWarning
		if change > 0 {
			direction, severity = "increased", domain.SeverityInfo
		}

		out = append(out, g.newAlert(DetectorStoreTrend, alertFields{
			title:    "Store Performance: " + name,
			message:  fmt.Sprintf("%s sales %s by %.1f%% this week", name, direction, math.Abs(change)),
			category: domain.AlertCategorySales,
			severity: severity,
			location: id,
			day:      today,
		}))
	}
	return out, nil
}
