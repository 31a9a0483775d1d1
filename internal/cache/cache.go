// Package cache memoizes derived metrics behind short TTLs.
//
// The cache never fails a read: a backend that errors or times out is
// reported as BackendUnavailable and callers recompute.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/idhash"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
)

var (
	// ErrNotFound is returned by backends for missing or expired keys.
	ErrNotFound = errors.New("cache: not found")

	// ErrUnavailable wraps backend failures surfaced by Set and Invalidate.
	ErrUnavailable = errors.New("cache: backend unavailable")
)

// Status is the outcome of a lookup.
type Status int

const (
	Miss Status = iota
	Hit
	BackendUnavailable
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case BackendUnavailable:
		return "unavailable"
	default:
		return "miss"
	}
}

// Backend stores raw values.
type Backend interface {
	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Result of Cache.Get. Value is set only on Hit.
type Result struct {
	Status Status
	Value  []byte
}

// DefaultTTL applies to operations missing from the TTL table.
const DefaultTTL = 30 * time.Second

// DefaultTTLs per operation.
var DefaultTTLs = map[string]time.Duration{
	"kpis":                   15 * time.Second,
	"inventory_items":        30 * time.Second,
	"promotions_list":        30 * time.Second,
	"alerts_summary":         30 * time.Second,
	"alerts_list":            30 * time.Second,
	"inventory_summary":      60 * time.Second,
	"promotions_summary":     60 * time.Second,
	"admin_dashboard":        60 * time.Second,
	"analytics":              60 * time.Second,
	"inventory_categories":   120 * time.Second,
	"promotions_performance": 120 * time.Second,
	"admin_stores":           120 * time.Second,
}

// Options configures a Cache.
type Options struct {
	// TTLs override entries of DefaultTTLs.
	TTLs       map[string]time.Duration
	DefaultTTL time.Duration
	// Timeout bounds every backend call. Default 500ms.
	Timeout time.Duration
	Logger  *log.Logger
}

// Cache is a fail-open read-through cache.
type Cache struct {
	backend    Backend
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	timeout    time.Duration
	logger     *log.Logger
}

// New creates a cache over backend.
func New(backend Backend, opts Options) *Cache {
	ttls := make(map[string]time.Duration, len(DefaultTTLs)+len(opts.TTLs))
	for op, ttl := range DefaultTTLs {
		ttls[op] = ttl
	}
	for op, ttl := range opts.TTLs {
		if ttl > 0 {
			ttls[op] = ttl
		}
	}

	def := opts.DefaultTTL
	if def <= 0 {
		def = DefaultTTL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Cache{
		backend:    backend,
		ttls:       ttls,
		defaultTTL: def,
		timeout:    timeout,
		logger:     logger,
	}
}

// TTL returns the expiry used for operation.
func (c *Cache) TTL(operation string) time.Duration {
	if ttl, ok := c.ttls[operation]; ok {
		return ttl
	}
	return c.defaultTTL
}

// Key builds the cache key for an operation and its parameters.
func (c *Cache) Key(operation string, params map[string]any) string {
	return idhash.ComputeCacheKey(operation, params)
}

// Get looks up key. Backend errors other than ErrNotFound yield BackendUnavailable.
func (c *Cache) Get(ctx context.Context, key string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := operationOf(key)
	value, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
		observability.RecordCache(op, Hit.String())
		return Result{Status: Hit, Value: value}
	case errors.Is(err, ErrNotFound):
		observability.RecordCache(op, Miss.String())
		return Result{Status: Miss}
	default:
		c.logger.Printf("warning: cache get %s: %v", key, err)
		observability.RecordCache(op, BackendUnavailable.String())
		return Result{Status: BackendUnavailable}
	}
}

// Set stores value as JSON under key.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		c.logger.Printf("warning: cache set %s: %v", key, err)
		observability.RecordCache(operationOf(key), "set_error")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Invalidate removes every key of namespace. A trailing '*' selects a family:
// "alerts_*" clears alerts_summary and alerts_list alike.
func (c *Cache) Invalidate(ctx context.Context, namespace string) (int, error) {
	prefix := idhash.CacheKeyPrefix(namespace)
	if family, ok := strings.CutSuffix(namespace, "*"); ok {
		prefix = "cache:" + family
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.backend.DeletePrefix(ctx, prefix)
	if err != nil {
		c.logger.Printf("warning: cache invalidate %s: %v", namespace, err)
		observability.RecordCache(namespace, "invalidate_error")
		return n, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// GetOrCompute returns the cached value for (operation, params) or computes
// and stores it with the operation's TTL. A nil cache always computes.
// Undecodable cached values are treated as misses.
func GetOrCompute[T any](ctx context.Context, c *Cache, operation string, params map[string]any, compute func(context.Context) (T, error)) (T, Status, error) {
	if c == nil {
		v, err := compute(ctx)
		return v, Miss, err
	}

	key := c.Key(operation, params)
	res := c.Get(ctx, key)
	if res.Status == Hit {
		var v T
		if err := json.Unmarshal(res.Value, &v); err == nil {
			return v, Hit, nil
		}
		c.logger.Printf("warning: cache value for %s is not decodable, recomputing", key)
		res.Status = Miss
	}

	v, err := compute(ctx)
	if err != nil {
		return v, res.Status, err
	}
	if res.Status != BackendUnavailable {
		_ = c.Set(ctx, key, v, c.TTL(operation))
	}
	return v, res.Status, nil
}

// operationOf extracts <operation> from cache:<operation>:<digest>.
func operationOf(key string) string {
	rest, ok := strings.CutPrefix(key, "cache:")
	if !ok {
		return "unknown"
	}
	op, _, _ := strings.Cut(rest, ":")
	return op
}
