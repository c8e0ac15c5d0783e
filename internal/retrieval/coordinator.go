// Package retrieval answers logical data requests from the cache or from
// ordered provider fallback chains.
//
// Each request consults the cache first. On a miss the adapters are tried
// in priority order and the first valid answer is written through. When
// every adapter fails, a stale cache entry of any age is served, then a
// documented default (empty tables, static fundamentals, a fixed universe).
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
	"github.com/wonny/marketlens/internal/provider/localfile"
	"github.com/wonny/marketlens/pkg/logger"
	"github.com/wonny/marketlens/pkg/metrics"
)

// Origin says where an answer came from
type Origin string

const (
	OriginCache   Origin = "cache"
	OriginLive    Origin = "live"
	OriginStale   Origin = "stale"
	OriginDefault Origin = "default"
)

// Result is an answer plus its origin
type Result[T any] struct {
	Data     T      `json:"data"`
	Origin   Origin `json:"origin"`
	Provider string `json:"provider,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Sources lists adapters in priority order per request type
type Sources struct {
	Boards       []provider.BoardSource
	History      []provider.HistorySource
	Fundamentals []provider.FundamentalSource
	Universe     []provider.UniverseSource

	// Backup is rewritten after every successful upstream listing; may be nil
	Backup *localfile.Backup
}

// Coordinator runs fallback chains over the cache
// ⭐ SSOT: Provider 호출 순서와 폴백은 여기서만
type Coordinator struct {
	cache    *cache.Cache
	sources  Sources
	metrics  *metrics.Metrics
	logger   *logger.Logger
	location *time.Location
}

// New creates a coordinator. m may be nil.
func New(c *cache.Cache, sources Sources, m *metrics.Metrics, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Coordinator{
		cache:    c,
		sources:  sources,
		metrics:  m,
		logger:   log.Component("retrieval"),
		location: time.Local,
	}
}

// WithLocation sets the calendar used by same-day cache policies
func (c *Coordinator) WithLocation(loc *time.Location) *Coordinator {
	c.location = loc
	return c
}

// Now returns the coordinator's clock time
func (c *Coordinator) Now() time.Time {
	return c.cache.Now()
}

// cached loads key and records the lookup
func cached[T any](ctx context.Context, c *Coordinator, dataset, key string, policy cache.Policy) (T, cache.State) {
	v, state, err := cache.Load[T](ctx, c.cache, key, policy)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		state = cache.Miss
	}
	c.metrics.CacheLookup(dataset, state.String())
	return v, state
}

// store writes through and logs failures; a failed write never fails the request
func store[T any](ctx context.Context, c *Coordinator, key string, v T) {
	if err := cache.Save(ctx, c.cache, key, v); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// warnDegraded surfaces a positional column fallback once per retrieval
func (c *Coordinator) warnDegraded(op, providerName string) {
	c.logger.WithFields(map[string]interface{}{
		"op":       op,
		"provider": providerName,
	}).Warn("Unrecognized column names, assumed first two columns are code and name")
}

func (c *Coordinator) exhausted(op, key string, level Origin) {
	c.metrics.Fallback(op, string(level))
	c.logger.WithFields(map[string]interface{}{
		"op":    op,
		"key":   key,
		"level": string(level),
	}).Warn("All providers failed")
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(market.RangeLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: want YYYYMMDD", start)
	}
	to, err := time.Parse(market.RangeLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: want YYYYMMDD", end)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s before start date %s", end, start)
	}
	return from, to, nil
}
