package retrieval

import (
	"context"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/normalize"
	"github.com/wonny/marketlens/internal/provider"
)

// Boards returns the normalized board snapshot table
func (c *Coordinator) Boards(ctx context.Context) (Result[[]market.BoardSnapshot], error) {
	key := cache.KeyBoards

	hit, state := cached[[]market.BoardSnapshot](ctx, c, provider.OpBoards, key, cache.BoardTTL)
	if state == cache.Fresh {
		return Result[[]market.BoardSnapshot]{Data: hit, Origin: OriginCache}, nil
	}

	strategies := make([]strategy[provider.Table[market.BoardSnapshot]], 0, len(c.sources.Boards))
	for _, src := range c.sources.Boards {
		src := src
		strategies = append(strategies, strategy[provider.Table[market.BoardSnapshot]]{
			name:  src.Name(),
			fetch: func(ctx context.Context) (provider.Table[market.BoardSnapshot], error) { return src.Boards(ctx) },
		})
	}

	// validity is judged after cleaning: a table of rows without change is empty
	var rows []market.BoardSnapshot
	got, ok, err := firstValid(ctx, c, provider.OpBoards, strategies, func(t provider.Table[market.BoardSnapshot]) bool {
		cleaned, dropped := normalize.Boards(t.Rows)
		if dropped > 0 {
			c.logger.WithField("dropped", dropped).Debug("Dropped board rows without change")
		}
		rows = cleaned
		return len(cleaned) > 0
	})
	if err != nil {
		return Result[[]market.BoardSnapshot]{}, err
	}
	if ok {
		if got.value.Degraded {
			c.warnDegraded(provider.OpBoards, got.provider)
		}
		store(ctx, c, key, rows)
		return Result[[]market.BoardSnapshot]{Data: rows, Origin: OriginLive, Provider: got.provider, Degraded: got.value.Degraded}, nil
	}

	if state == cache.Stale {
		c.exhausted(provider.OpBoards, key, OriginStale)
		return Result[[]market.BoardSnapshot]{Data: hit, Origin: OriginStale}, nil
	}
	c.exhausted(provider.OpBoards, key, OriginDefault)
	return Result[[]market.BoardSnapshot]{Data: []market.BoardSnapshot{}, Origin: OriginDefault}, nil
}

// BoardsWithin returns the board table restricted to the last days days
func (c *Coordinator) BoardsWithin(ctx context.Context, days int) (Result[[]market.BoardSnapshot], error) {
	res, err := c.Boards(ctx)
	if err != nil {
		return res, err
	}
	res.Data = normalize.WithinDays(res.Data, days, c.Now())
	return res, nil
}
