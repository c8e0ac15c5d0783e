package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// Fundamentals returns the screening ratios for code.
//
// The first adapter with any defined ratio wins. If its record is partial,
// later adapters may fill only the fields it left undefined; a field is never
// overwritten and never filled with a default. When no adapter answers, a
// stale record is served, then the static defaults marked ProvenanceDefault.
func (c *Coordinator) Fundamentals(ctx context.Context, code string) (Result[market.FundamentalRecord], error) {
	sym, err := market.ParseSymbol(code)
	if err != nil {
		return Result[market.FundamentalRecord]{}, err
	}

	key := cache.FundamentalKey(sym.Code)
	hit, state := cached[market.FundamentalRecord](ctx, c, provider.OpFundamentals, key, cache.FundamentalPolicy(c.location))
	if state == cache.Fresh {
		hit.Provenance = market.ProvenanceCache
		return Result[market.FundamentalRecord]{Data: hit, Origin: OriginCache, Provider: hit.Source}, nil
	}

	rec, ok, err := c.fetchFundamentals(ctx, sym)
	if err != nil {
		return Result[market.FundamentalRecord]{}, err
	}
	if ok {
		store(ctx, c, key, rec)
		return Result[market.FundamentalRecord]{Data: rec, Origin: OriginLive, Provider: rec.Source}, nil
	}

	if state == cache.Stale {
		c.exhausted(provider.OpFundamentals, key, OriginStale)
		hit.Provenance = market.ProvenanceCache
		return Result[market.FundamentalRecord]{Data: hit, Origin: OriginStale, Provider: hit.Source}, nil
	}

	// defaults are not cached so the next request tries upstream again
	c.exhausted(provider.OpFundamentals, key, OriginDefault)
	return Result[market.FundamentalRecord]{Data: market.DefaultFundamentals(sym.Code), Origin: OriginDefault}, nil
}

func (c *Coordinator) fetchFundamentals(ctx context.Context, sym market.Symbol) (market.FundamentalRecord, bool, error) {
	sources := c.sources.Fundamentals

	strategies := make([]strategy[market.FundamentalRecord], 0, len(sources))
	for _, src := range sources {
		src := src
		strategies = append(strategies, strategy[market.FundamentalRecord]{
			name: src.Name(),
			fetch: func(ctx context.Context) (market.FundamentalRecord, error) {
				return src.Fundamentals(ctx, sym)
			},
		})
	}

	// an all-undefined record is the explicit "no data" sentinel
	notEmpty := func(r market.FundamentalRecord) bool { return !r.Empty() }

	got, ok, err := firstValid(ctx, c, provider.OpFundamentals, strategies, notEmpty)
	if err != nil || !ok {
		return market.FundamentalRecord{}, false, err
	}

	rec := got.value
	rec.Code = sym.Code
	used := []string{got.provider}

	for _, s := range strategies[got.index+1:] {
		if rec.Complete() {
			break
		}
		if err := ctx.Err(); err != nil {
			return market.FundamentalRecord{}, false, err
		}

		started := time.Now()
		extra, err := s.fetch(ctx)
		if err != nil {
			c.metrics.ProviderAttempt(s.name, provider.OpFundamentals, outcomeOf(err), time.Since(started))
			continue
		}
		c.metrics.ProviderAttempt(s.name, provider.OpFundamentals, "ok", time.Since(started))
		if fillMissing(&rec, extra) {
			used = append(used, s.name)
		}
	}

	rec.Source = strings.Join(used, "+")
	rec.Provenance = market.Provenance(got.provider)
	return rec, true, nil
}

// fillMissing copies defined fields of src into undefined fields of dst
func fillMissing(dst *market.FundamentalRecord, src market.FundamentalRecord) bool {
	filled := false
	fill := func(d *market.Num, s market.Num) {
		if !d.Valid && s.Valid {
			*d = s
			filled = true
		}
	}
	fill(&dst.PE, src.PE)
	fill(&dst.PB, src.PB)
	fill(&dst.ROE, src.ROE)
	fill(&dst.RevenueGrowth, src.RevenueGrowth)
	fill(&dst.NetProfitGrowth, src.NetProfitGrowth)
	return filled
}
