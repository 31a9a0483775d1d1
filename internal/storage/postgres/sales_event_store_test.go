package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

var baseDay = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func newEvent(dayOffset, loc, prod, qty int, cat domain.TransactionCategory) *domain.SalesEvent {
	d := baseDay.AddDate(0, 0, dayOffset)
	return &domain.SalesEvent{
		ID:          uuid.NewString(),
		Date:        d,
		LocationID:  loc,
		ProductID:   prod,
		Quantity:    qty,
		IsStreaming: cat != "",
		Category:    cat,
		CreatedAt:   d.Add(time.Duration(dayOffset+1) * time.Hour),
	}
}

func TestSalesEventStore_InsertAndGetHistorical(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSalesEventStore(pool)
	ctx := context.Background()

	h1 := newEvent(1, 1, 2, 10, "")
	h0 := newEvent(0, 1, 2, 14, "")
	s0 := newEvent(2, 1, 2, 6, domain.CategoryPromotional)

	require.NoError(t, store.Insert(ctx, h1))
	require.NoError(t, store.Insert(ctx, h0))
	require.NoError(t, store.Insert(ctx, s0))

	hist, err := store.GetHistorical(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, h0.ID, hist[0].ID)
	assert.Equal(t, h1.ID, hist[1].ID)
	assert.True(t, hist[0].Date.Equal(baseDay))
	assert.Empty(t, hist[0].Category)
}

func TestSalesEventStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSalesEventStore(pool)
	ctx := context.Background()

	e := newEvent(0, 1, 1, 5, "")
	require.NoError(t, store.Insert(ctx, e))

	err := store.Insert(ctx, e)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSalesEventStore_SignRule(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSalesEventStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, newEvent(0, 1, 1, 5, domain.CategoryReturn))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// The table constraint rejects rows that bypass Validate.
	_, err = pool.Exec(ctx, `
		INSERT INTO sales_events (event_id, sale_date, location_id, product_id, quantity, is_streaming, transaction_category)
		VALUES ($1, $2, 1, 1, 4, TRUE, 'return')
	`, uuid.NewString(), baseDay)
	require.Error(t, err)
	assert.True(t, isCheckViolation(err))

	require.NoError(t, store.Insert(ctx, newEvent(0, 1, 1, -4, domain.CategoryReturn)))
}

func TestSalesEventStore_InsertBulk(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSalesEventStore(pool)
	ctx := context.Background()

	var batch []*domain.SalesEvent
	for d := 0; d < 5; d++ {
		for loc := 1; loc <= 3; loc++ {
			batch = append(batch, newEvent(d, loc, 4, 10+d, ""))
		}
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	dup := []*domain.SalesEvent{newEvent(9, 1, 1, 1, ""), batch[0]}
	assert.ErrorIs(t, store.InsertBulk(ctx, dup), storage.ErrDuplicateKey)

	hist, err := store.GetHistorical(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, 15, "failed batch must roll back")
}

func TestSalesEventStore_LatestAndStats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSalesEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newEvent(0, 1, 1, 10, "")))
	require.NoError(t, store.Insert(ctx, newEvent(3, 1, 1, 10, "")))
	last := newEvent(4, 2, 3, -2, domain.CategoryReturn)
	require.NoError(t, store.Insert(ctx, last))

	latest, err := store.GetLatest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, last.ID, latest[0].ID)
	assert.Equal(t, domain.CategoryReturn, latest[0].Category)
	assert.Equal(t, -2, latest[0].Quantity)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.HistoricalCount)
	assert.Equal(t, 1, st.StreamingCount)
	assert.True(t, st.FirstDate.Equal(baseDay))
	assert.True(t, st.LastDate.Equal(baseDay.AddDate(0, 0, 4)))
	assert.False(t, st.LastStreamedAt.IsZero())
}

func TestSalesEventStore_DailySales(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSalesEventStore(pool)
	ctx := context.Background()

	_, err := store.LatestDate(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, newEvent(0, 1, 1, 10, "")))
	require.NoError(t, store.Insert(ctx, newEvent(0, 1, 1, 8, domain.CategoryRegular)))
	require.NoError(t, store.Insert(ctx, newEvent(0, 1, 1, -3, domain.CategoryReturn)))
	require.NoError(t, store.Insert(ctx, newEvent(2, 1, 1, 7, "")))

	rows, err := store.GetDailySales(ctx, baseDay, baseDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 15, rows[0].Quantity)
	assert.Equal(t, 3, rows[0].Events)

	latest, err := store.LatestDate(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Equal(baseDay.AddDate(0, 0, 2)))
}
