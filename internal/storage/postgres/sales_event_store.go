package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// SalesEventStore implements storage.SalesEventStore and storage.DailySalesReader
// using PostgreSQL.
type SalesEventStore struct {
	pool *Pool
}

// NewSalesEventStore creates a new SalesEventStore.
func NewSalesEventStore(pool *Pool) *SalesEventStore {
	return &SalesEventStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.SalesEventStore  = (*SalesEventStore)(nil)
	_ storage.DailySalesReader = (*SalesEventStore)(nil)
)

var salesEventColumns = []string{
	"event_id", "sale_date", "location_id", "product_id", "quantity",
	"is_streaming", "transaction_category", "created_at",
}

func categoryArg(c domain.TransactionCategory) *string {
	if c == "" {
		return nil
	}
	s := string(c)
	return &s
}

func validate(e *domain.SalesEvent) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	return nil
}

func mapWriteError(op string, err error) error {
	switch {
	case isDuplicateKeyError(err):
		return storage.ErrDuplicateKey
	case isCheckViolation(err):
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *SalesEventStore) Insert(ctx context.Context, e *domain.SalesEvent) (err error) {
	if err := validate(e); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_sales_event", start, err) }(time.Now())

	query := `
		INSERT INTO sales_events (
			event_id, sale_date, location_id, product_id, quantity,
			is_streaming, transaction_category, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		e.ID,
		domain.Day(e.Date),
		e.LocationID,
		e.ProductID,
		e.Quantity,
		e.IsStreaming,
		categoryArg(e.Category),
		e.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert sales event", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically via COPY. Fails entire batch on any duplicate.
func (s *SalesEventStore) InsertBulk(ctx context.Context, events []*domain.SalesEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := validate(e); err != nil {
			return err
		}
	}
	defer func(start time.Time) { observe("insert_sales_events_bulk", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.ID, domain.Day(e.Date), e.LocationID, e.ProductID, e.Quantity,
			e.IsStreaming, categoryArg(e.Category), e.CreatedAt,
		})
	}

	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"sales_events"}, salesEventColumns, pgx.CopyFromRows(rows)); err != nil {
		return mapWriteError("copy sales events", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetHistorical retrieves all non-streaming events, ordered by date ASC.
func (s *SalesEventStore) GetHistorical(ctx context.Context) (_ []*domain.SalesEvent, err error) {
	defer func(start time.Time) { observe("get_historical", start, err) }(time.Now())

	query := `
		SELECT event_id, sale_date, location_id, product_id, quantity,
		       is_streaming, transaction_category, created_at
		FROM sales_events
		WHERE is_streaming = FALSE
		ORDER BY sale_date ASC, location_id ASC, product_id ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get historical sales: %w", err)
	}
	defer rows.Close()

	return scanSalesEvents(rows)
}

// GetLatest retrieves up to limit events ordered by created_at DESC.
func (s *SalesEventStore) GetLatest(ctx context.Context, limit int) (_ []*domain.SalesEvent, err error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("get_latest", start, err) }(time.Now())

	query := `
		SELECT event_id, sale_date, location_id, product_id, quantity,
		       is_streaming, transaction_category, created_at
		FROM sales_events
		ORDER BY created_at DESC, event_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get latest sales: %w", err)
	}
	defer rows.Close()

	return scanSalesEvents(rows)
}

// Stats summarises row counts and the covered date range.
func (s *SalesEventStore) Stats(ctx context.Context) (st domain.SalesStats, err error) {
	defer func(start time.Time) { observe("stats", start, err) }(time.Now())

	query := `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_streaming),
			COUNT(*) FILTER (WHERE is_streaming),
			MIN(sale_date),
			MAX(sale_date),
			MAX(created_at) FILTER (WHERE is_streaming)
		FROM sales_events
	`

	var first, last, streamed *time.Time
	err = s.pool.QueryRow(ctx, query).Scan(&st.HistoricalCount, &st.StreamingCount, &first, &last, &streamed)
	if err != nil {
		return domain.SalesStats{}, fmt.Errorf("sales stats: %w", err)
	}
	if first != nil {
		st.FirstDate = first.UTC()
	}
	if last != nil {
		st.LastDate = last.UTC()
	}
	if streamed != nil {
		st.LastStreamedAt = streamed.UTC()
	}
	return st, nil
}

// GetDailySales aggregates events by (date, location, product) for days within [start, end].
func (s *SalesEventStore) GetDailySales(ctx context.Context, start, end time.Time) (_ []domain.DailySales, err error) {
	defer func(t time.Time) { observe("get_daily_sales", t, err) }(time.Now())

	query := `
		SELECT sale_date, location_id, product_id, SUM(quantity), COUNT(*)
		FROM sales_events
		WHERE sale_date >= $1 AND sale_date <= $2
		GROUP BY sale_date, location_id, product_id
		ORDER BY sale_date ASC, location_id ASC, product_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("get daily sales: %w", err)
	}
	defer rows.Close()

	var out []domain.DailySales
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.Date, &d.LocationID, &d.ProductID, &d.Quantity, &d.Events); err != nil {
			return nil, fmt.Errorf("scan daily sales row: %w", err)
		}
		d.Date = domain.Day(d.Date)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily sales rows: %w", err)
	}
	return out, nil
}

// LatestDate returns the most recent day with data. Returns ErrNotFound if empty.
func (s *SalesEventStore) LatestDate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(sale_date) FROM sales_events`).Scan(&latest)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest sale date: %w", err)
	}
	if latest == nil {
		return time.Time{}, storage.ErrNotFound
	}
	return domain.Day(*latest), nil
}

// scanSalesEvents scans multiple rows into a slice of SalesEvent.
func scanSalesEvents(rows pgx.Rows) ([]*domain.SalesEvent, error) {
	var events []*domain.SalesEvent

	for rows.Next() {
		var (
			e        domain.SalesEvent
			category *string
		)

		err := rows.Scan(
			&e.ID,
			&e.Date,
			&e.LocationID,
			&e.ProductID,
			&e.Quantity,
			&e.IsStreaming,
			&category,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sales event row: %w", err)
		}
		if category != nil {
			e.Category = domain.TransactionCategory(*category)
		}
		e.Date = domain.Day(e.Date)

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales event rows: %w", err)
	}

	return events, nil
}
