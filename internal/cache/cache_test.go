package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestMemoryBackend_TTLBoundary(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := New(NewMemoryBackend(clock.now), Options{Logger: quietLogger()})
	ctx := context.Background()

	key := c.Key("kpis", nil)
	require.NoError(t, c.Set(ctx, key, map[string]int{"total": 5}, 15*time.Second))

	clock.t = clock.t.Add(15*time.Second - time.Nanosecond)
	res := c.Get(ctx, key)
	assert.Equal(t, Hit, res.Status)
	assert.JSONEq(t, `{"total":5}`, string(res.Value))

	clock.t = clock.t.Add(time.Nanosecond)
	assert.Equal(t, Miss, c.Get(ctx, key).Status, "expired at exactly the TTL")
}

func TestCache_TTLTable(t *testing.T) {
	c := New(NewMemoryBackend(nil), Options{TTLs: map[string]time.Duration{"analytics": time.Minute * 5}})

	assert.Equal(t, 15*time.Second, c.TTL("kpis"))
	assert.Equal(t, 120*time.Second, c.TTL("inventory_categories"))
	assert.Equal(t, 5*time.Minute, c.TTL("analytics"))
	assert.Equal(t, DefaultTTL, c.TTL("something_else"))
}

func TestCache_KeyFormat(t *testing.T) {
	c := New(NewMemoryBackend(nil), Options{})
	a := c.Key("alerts_list", map[string]any{"severity": "critical", "limit": 10})
	b := c.Key("alerts_list", map[string]any{"limit": 10, "severity": "critical"})

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "cache:alerts_list:"))
	assert.Len(t, strings.TrimPrefix(a, "cache:alerts_list:"), 12)
}

func TestCache_InvalidateNamespaceAndFamily(t *testing.T) {
	backend := NewMemoryBackend(nil)
	c := New(backend, Options{Logger: quietLogger()})
	ctx := context.Background()

	for _, op := range []string{"alerts_summary", "alerts_list", "kpis", "inventory_items"} {
		require.NoError(t, c.Set(ctx, c.Key(op, nil), 1, time.Minute))
	}
	require.NoError(t, c.Set(ctx, c.Key("kpis", map[string]any{"day": 1}), 1, time.Minute))

	n, err := c.Invalidate(ctx, "kpis")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Invalidate(ctx, "alerts_*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 1, backend.Len())
	assert.Equal(t, Hit, c.Get(ctx, c.Key("inventory_items", nil)).Status)
}

type failingBackend struct{ calls int }

func (f *failingBackend) Get(context.Context, string) ([]byte, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	f.calls++
	return errors.New("connection refused")
}

func (f *failingBackend) DeletePrefix(context.Context, string) (int, error) {
	f.calls++
	return 0, errors.New("connection refused")
}

func TestCache_BackendFailureDegrades(t *testing.T) {
	backend := &failingBackend{}
	c := New(backend, Options{Logger: quietLogger()})
	ctx := context.Background()

	assert.Equal(t, BackendUnavailable, c.Get(ctx, "cache:kpis:abc").Status)

	computed := 0
	v, status, err := GetOrCompute(ctx, c, "kpis", nil, func(context.Context) (int, error) {
		computed++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, BackendUnavailable, status)
	assert.Equal(t, 1, computed)

	_, err = c.Invalidate(ctx, "kpis")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type slowBackend struct{ *MemoryBackend }

func (s *slowBackend) Get(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCache_GetTimeout(t *testing.T) {
	c := New(&slowBackend{MemoryBackend: NewMemoryBackend(nil)}, Options{Timeout: 20 * time.Millisecond, Logger: quietLogger()})

	start := time.Now()
	res := c.Get(context.Background(), "cache:kpis:abc")
	assert.Equal(t, BackendUnavailable, res.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetOrCompute_ReadThrough(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	c := New(NewMemoryBackend(clock.now), Options{Logger: quietLogger()})
	ctx := context.Background()

	type summary struct {
		Total int `json:"total"`
	}
	calls := 0
	compute := func(context.Context) (summary, error) {
		calls++
		return summary{Total: calls}, nil
	}

	v, status, err := GetOrCompute(ctx, c, "kpis", nil, compute)
	require.NoError(t, err)
	assert.Equal(t, Miss, status)
	assert.Equal(t, 1, v.Total)

	v, status, err = GetOrCompute(ctx, c, "kpis", nil, compute)
	require.NoError(t, err)
	assert.Equal(t, Hit, status)
	assert.Equal(t, 1, v.Total)

	clock.t = clock.t.Add(15 * time.Second)
	v, status, _ = GetOrCompute(ctx, c, "kpis", nil, compute)
	assert.Equal(t, Miss, status)
	assert.Equal(t, 2, v.Total)
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	backend := NewMemoryBackend(nil)
	c := New(backend, Options{Logger: quietLogger()})

	_, _, err := GetOrCompute(context.Background(), c, "kpis", nil, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, backend.Len())
}

func TestGetOrCompute_NilCache(t *testing.T) {
	v, status, err := GetOrCompute(context.Background(), nil, "kpis", nil, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, Miss, status)
}

func TestOperationOf(t *testing.T) {
	assert.Equal(t, "kpis", operationOf("cache:kpis:0123456789ab"))
	assert.Equal(t, "unknown", operationOf("kpis"))
}
