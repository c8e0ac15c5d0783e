package retrieval

import (
	"context"
	"time"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/indicator"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/normalize"
	"github.com/wonny/marketlens/internal/provider"
)

// History returns cleaned ascending daily bars for code over [start, end].
// An error is returned only for malformed input or cancellation.
func (c *Coordinator) History(ctx context.Context, code, start, end string) (Result[[]market.QuoteHistoryRow], error) {
	sym, err := market.ParseSymbol(code)
	if err != nil {
		return Result[[]market.QuoteHistoryRow]{}, err
	}
	_, to, err := parseRange(start, end)
	if err != nil {
		return Result[[]market.QuoteHistoryRow]{}, err
	}

	key := cache.HistoryKey(sym.Code, start, end)
	endDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, c.location)
	policy := cache.HistoryPolicy(endDay, c.Now(), c.location)

	hit, state := cached[[]market.QuoteHistoryRow](ctx, c, provider.OpHistory, key, policy)
	if state == cache.Fresh {
		return Result[[]market.QuoteHistoryRow]{Data: hit, Origin: OriginCache}, nil
	}

	strategies := make([]strategy[provider.Table[market.QuoteHistoryRow]], 0, len(c.sources.History))
	for _, src := range c.sources.History {
		src := src
		strategies = append(strategies, strategy[provider.Table[market.QuoteHistoryRow]]{
			name: src.Name(),
			fetch: func(ctx context.Context) (provider.Table[market.QuoteHistoryRow], error) {
				return src.History(ctx, sym, start, end)
			},
		})
	}

	var rows []market.QuoteHistoryRow
	got, ok, err := firstValid(ctx, c, provider.OpHistory, strategies, func(t provider.Table[market.QuoteHistoryRow]) bool {
		rows, _ = normalize.History(t.Rows)
		return len(rows) > 0
	})
	if err != nil {
		return Result[[]market.QuoteHistoryRow]{}, err
	}
	if ok {
		store(ctx, c, key, rows)
		return Result[[]market.QuoteHistoryRow]{Data: rows, Origin: OriginLive, Provider: got.provider}, nil
	}

	if state == cache.Stale {
		c.exhausted(provider.OpHistory, key, OriginStale)
		return Result[[]market.QuoteHistoryRow]{Data: hit, Origin: OriginStale}, nil
	}
	c.exhausted(provider.OpHistory, key, OriginDefault)
	return Result[[]market.QuoteHistoryRow]{Data: []market.QuoteHistoryRow{}, Origin: OriginDefault}, nil
}

// Indicators returns History with technical indicators attached
func (c *Coordinator) Indicators(ctx context.Context, code, start, end string) (Result[[]market.IndicatorRow], error) {
	res, err := c.History(ctx, code, start, end)
	if err != nil {
		return Result[[]market.IndicatorRow]{}, err
	}
	return Result[[]market.IndicatorRow]{
		Data:     indicator.Compute(res.Data),
		Origin:   res.Origin,
		Provider: res.Provider,
	}, nil
}
