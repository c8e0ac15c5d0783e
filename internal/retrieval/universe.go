package retrieval

import (
	"context"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
	"github.com/wonny/marketlens/internal/provider/localfile"
)

// defaultUniverse is served when no listing source answers
var defaultUniverse = []market.StockInfo{
	{Code: "000001", Name: "平安银行"},
	{Code: "000002", Name: "万科A"},
	{Code: "000063", Name: "中兴通讯"},
	{Code: "000333", Name: "美的集团"},
	{Code: "000651", Name: "格力电器"},
	{Code: "000858", Name: "五粮液"},
	{Code: "002415", Name: "海康威视"},
	{Code: "600000", Name: "浦发银行"},
	{Code: "600036", Name: "招商银行"},
	{Code: "600276", Name: "恒瑞医药"},
	{Code: "600519", Name: "贵州茅台"},
	{Code: "601318", Name: "中国平安"},
	{Code: "601857", Name: "中国石油"},
	{Code: "601398", Name: "工商银行"},
	{Code: "601988", Name: "中国银行"},
	{Code: "603288", Name: "海天味业"},
	{Code: "601888", Name: "中国中免"},
	{Code: "600050", Name: "中国联通"},
	{Code: "600009", Name: "上海机场"},
	{Code: "688981", Name: "中芯国际"},
}

// DefaultUniverse returns a copy of the static fallback listing
func DefaultUniverse() []market.StockInfo {
	out := make([]market.StockInfo, len(defaultUniverse))
	copy(out, defaultUniverse)
	return out
}

// Universe returns the stock listing.
// Upstream listings refresh the cache and the CSV backup; a listing read
// back from the backup itself is served but not cached.
func (c *Coordinator) Universe(ctx context.Context) (Result[[]market.StockInfo], error) {
	key := cache.KeyUniverse

	hit, state := cached[[]market.StockInfo](ctx, c, provider.OpUniverse, key, cache.UniverseTTL)
	if state == cache.Fresh {
		return Result[[]market.StockInfo]{Data: hit, Origin: OriginCache}, nil
	}

	sources := c.sources.Universe
	if c.sources.Backup != nil && !hasSource(sources, localfile.Name) {
		sources = append(append([]provider.UniverseSource{}, sources...), c.sources.Backup)
	}

	strategies := make([]strategy[provider.Table[market.StockInfo]], 0, len(sources))
	for _, src := range sources {
		src := src
		strategies = append(strategies, strategy[provider.Table[market.StockInfo]]{
			name:  src.Name(),
			fetch: func(ctx context.Context) (provider.Table[market.StockInfo], error) { return src.Universe(ctx) },
		})
	}

	var rows []market.StockInfo
	got, ok, err := firstValid(ctx, c, provider.OpUniverse, strategies, func(t provider.Table[market.StockInfo]) bool {
		rows = validListings(t.Rows)
		return len(rows) > 0
	})
	if err != nil {
		return Result[[]market.StockInfo]{}, err
	}
	if ok {
		if got.value.Degraded {
			c.warnDegraded(provider.OpUniverse, got.provider)
		}
		if got.provider != localfile.Name {
			store(ctx, c, key, rows)
			if c.sources.Backup != nil {
				if err := c.sources.Backup.Write(rows); err != nil {
					c.logger.WithError(err).Warn("Universe backup write failed")
				}
			}
		}
		return Result[[]market.StockInfo]{Data: rows, Origin: OriginLive, Provider: got.provider, Degraded: got.value.Degraded}, nil
	}

	if state == cache.Stale {
		c.exhausted(provider.OpUniverse, key, OriginStale)
		return Result[[]market.StockInfo]{Data: hit, Origin: OriginStale}, nil
	}
	c.exhausted(provider.OpUniverse, key, OriginDefault)
	return Result[[]market.StockInfo]{Data: DefaultUniverse(), Origin: OriginDefault}, nil
}

// validListings keeps rows whose code parses as an A-share symbol,
// normalized to the bare six-digit code, first occurrence wins
func validListings(rows []market.StockInfo) []market.StockInfo {
	seen := make(map[string]bool, len(rows))
	out := make([]market.StockInfo, 0, len(rows))
	for _, r := range rows {
		sym, err := market.ParseSymbol(r.Code)
		if err != nil || seen[sym.Code] {
			continue
		}
		seen[sym.Code] = true
		out = append(out, market.StockInfo{Code: sym.Code, Name: r.Name})
	}
	return out
}

func hasSource(sources []provider.UniverseSource, name string) bool {
	for _, s := range sources {
		if s.Name() == name {
			return true
		}
	}
	return false
}
