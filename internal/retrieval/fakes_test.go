package retrieval

import (
	"context"
	"time"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
	"github.com/wonny/marketlens/pkg/logger"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeBoards struct {
	name  string
	calls int
	table provider.Table[market.BoardSnapshot]
	err   error
}

func (f *fakeBoards) Name() string { return f.name }

func (f *fakeBoards) Boards(context.Context) (provider.Table[market.BoardSnapshot], error) {
	f.calls++
	return f.table, f.err
}

type fakeHistory struct {
	name  string
	calls int
	rows  []market.QuoteHistoryRow
	err   error
}

func (f *fakeHistory) Name() string { return f.name }

func (f *fakeHistory) History(context.Context, market.Symbol, string, string) (provider.Table[market.QuoteHistoryRow], error) {
	f.calls++
	return provider.Table[market.QuoteHistoryRow]{Rows: f.rows}, f.err
}

type fakeFundamentals struct {
	name  string
	calls int
	rec   market.FundamentalRecord
	err   error
}

func (f *fakeFundamentals) Name() string { return f.name }

func (f *fakeFundamentals) Fundamentals(_ context.Context, sym market.Symbol) (market.FundamentalRecord, error) {
	f.calls++
	if f.err != nil {
		return market.FundamentalRecord{}, f.err
	}
	rec := f.rec
	rec.Code = sym.Code
	rec.Source = f.name
	return rec, nil
}

type fakeUniverse struct {
	name  string
	calls int
	table provider.Table[market.StockInfo]
	err   error
}

func (f *fakeUniverse) Name() string { return f.name }

func (f *fakeUniverse) Universe(context.Context) (provider.Table[market.StockInfo], error) {
	f.calls++
	return f.table, f.err
}

var (
	testStart = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	errDown   = provider.Fail("fake", "op", context.DeadlineExceeded)
	errBroken = provider.Fail("fake", "op", provider.ErrSchema)
)

func newTestCoordinator(sources Sources) (*Coordinator, *fakeClock, *cache.MemoryStore) {
	clock := &fakeClock{now: testStart}
	store := cache.NewMemoryStore()
	c := New(cache.New(store, clock.Now, nil), sources, nil, logger.NewNop()).WithLocation(time.UTC)
	return c, clock, store
}

func bar(date string, close float64) market.QuoteHistoryRow {
	return market.QuoteHistoryRow{
		Date:   date,
		Open:   market.Some(close - 0.1),
		Close:  market.Some(close),
		High:   market.Some(close + 0.2),
		Low:    market.Some(close - 0.2),
		Volume: market.Some(1000),
	}
}
