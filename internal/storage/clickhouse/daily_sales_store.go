package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// DailySalesStore implements storage.DailySalesStore on a SummingMergeTree table.
// Every Record call appends one row per event; ClickHouse folds them on merge
// and reads always aggregate, so unmerged parts are summed correctly.
type DailySalesStore struct {
	conn *Conn
}

// NewDailySalesStore creates a new DailySalesStore.
func NewDailySalesStore(conn *Conn) *DailySalesStore {
	return &DailySalesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailySalesStore = (*DailySalesStore)(nil)

// Record folds events into their (date, location, product) aggregates.
func (s *DailySalesStore) Record(ctx context.Context, events []*domain.SalesEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.LocationID <= 0 || e.ProductID <= 0 {
			return storage.ErrInvalidInput
		}
	}
	defer func(start time.Time) { observe("record_daily_sales", start, err) }(time.Now())

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_sales (sale_date, location_id, product_id, quantity, events)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			domain.Day(e.Date), uint32(e.LocationID), uint32(e.ProductID),
			int64(e.Quantity), uint64(1),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetDailySales retrieves aggregates for days within [start, end] (inclusive).
func (s *DailySalesStore) GetDailySales(ctx context.Context, start, end time.Time) (_ []domain.DailySales, err error) {
	defer func(t time.Time) { observe("get_daily_sales", t, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT sale_date, location_id, product_id, sum(quantity), sum(events)
		FROM daily_sales
		WHERE sale_date >= ? AND sale_date <= ?
		GROUP BY sale_date, location_id, product_id
		ORDER BY sale_date, location_id, product_id
	`, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("query daily sales: %w", err)
	}
	defer rows.Close()

	return scanDailySales(rows)
}

// LatestDate returns the most recent day with data. Returns ErrNotFound if empty.
func (s *DailySalesStore) LatestDate(ctx context.Context) (time.Time, error) {
	var (
		latest time.Time
		count  uint64
	)
	row := s.conn.QueryRow(ctx, `SELECT max(sale_date), count() FROM daily_sales`)
	if err := row.Scan(&latest, &count); err != nil {
		return time.Time{}, fmt.Errorf("latest sale date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return domain.Day(latest), nil
}

type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDailySales(rows chRows) ([]domain.DailySales, error) {
	var out []domain.DailySales

	for rows.Next() {
		var (
			date          time.Time
			location, sku uint32
			quantity      int64
			events        uint64
		)
		if err := rows.Scan(&date, &location, &sku, &quantity, &events); err != nil {
			return nil, fmt.Errorf("scan daily sales row: %w", err)
		}
		out = append(out, domain.DailySales{
			Date:       domain.Day(date),
			LocationID: int(location),
			ProductID:  int(sku),
			Quantity:   int(quantity),
			Events:     int(events),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily sales rows: %w", err)
	}
	return out, nil
}
