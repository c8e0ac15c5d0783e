package retrieval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
	"github.com/wonny/marketlens/internal/provider/localfile"
	"github.com/wonny/marketlens/pkg/logger"
	"github.com/wonny/marketlens/pkg/metrics"
)

func boardTable() provider.Table[market.BoardSnapshot] {
	return provider.Table[market.BoardSnapshot]{Rows: []market.BoardSnapshot{
		{Code: "BK0477", Name: "酿酒行业", Date: "2024-03-15", PctChange: market.Some(0.0234), TurnoverRate: market.Some(0.01)},
		{Code: "BK0001", Name: "无数据", Date: "2024-03-15"},
	}}
}

func TestBoards_TTLBoundary(t *testing.T) {
	primary := &fakeBoards{name: "primary", table: boardTable()}
	c, clock, _ := newTestCoordinator(Sources{Boards: []provider.BoardSource{primary}})
	ctx := context.Background()

	res, err := c.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin)
	require.Len(t, res.Data, 1, "row without change dropped")
	assert.Equal(t, 0.02, res.Data[0].PctChange.Value)
	assert.Equal(t, 1, primary.calls)

	clock.now = testStart.Add(3599 * time.Second)
	res, err = c.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, OriginCache, res.Origin)
	assert.Equal(t, 1, primary.calls, "fresh cache must not touch adapters")

	clock.now = testStart.Add(3601 * time.Second)
	res, err = c.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin)
	assert.Equal(t, 2, primary.calls)
}

func TestBoards_FallbackOrder(t *testing.T) {
	primary := &fakeBoards{name: "primary", err: errDown}
	empty := &fakeBoards{name: "empty", table: provider.Table[market.BoardSnapshot]{
		Rows: []market.BoardSnapshot{{Code: "x"}},
	}}
	last := &fakeBoards{name: "last", table: boardTable()}
	never := &fakeBoards{name: "never", table: boardTable()}

	c, _, _ := newTestCoordinator(Sources{Boards: []provider.BoardSource{primary, empty, last, never}})

	res, err := c.Boards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", res.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 0, never.calls, "short-circuits on first success")
}

func TestBoards_StaleThenDefault(t *testing.T) {
	src := &fakeBoards{name: "primary", table: boardTable()}
	c, clock, _ := newTestCoordinator(Sources{Boards: []provider.BoardSource{src}})
	ctx := context.Background()

	_, err := c.Boards(ctx)
	require.NoError(t, err)

	src.err = errDown
	clock.now = testStart.Add(48 * time.Hour)
	res, err := c.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, OriginStale, res.Origin)
	assert.Len(t, res.Data, 1)

	fresh, _, _ := newTestCoordinator(Sources{Boards: []provider.BoardSource{&fakeBoards{name: "down", err: errDown}}})
	res, err = fresh.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, OriginDefault, res.Origin)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestBoards_CancelledContext(t *testing.T) {
	src := &fakeBoards{name: "primary", table: boardTable()}
	c, _, _ := newTestCoordinator(Sources{Boards: []provider.BoardSource{src}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Boards(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, src.calls)
}

func TestBoardsWithin(t *testing.T) {
	src := &fakeBoards{name: "primary", table: provider.Table[market.BoardSnapshot]{Rows: []market.BoardSnapshot{
		{Code: "a", Date: "2024-03-15", PctChange: market.Some(0.01)},
		{Code: "b", Date: "2024-03-01", PctChange: market.Some(0.01)},
	}}}
	c, _, _ := newTestCoordinator(Sources{Boards: []provider.BoardSource{src}})

	res, err := c.BoardsWithin(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "a", res.Data[0].Code)
}

func TestHistory_CleansAndCaches(t *testing.T) {
	primary := &fakeHistory{name: "primary", err: errBroken}
	secondary := &fakeHistory{name: "secondary", rows: []market.QuoteHistoryRow{
		bar("2024-01-03", 10.5),
		{Date: "2024-01-02", Open: market.Some(10), Close: market.Some(10), High: market.Some(10), Low: market.Some(10), Volume: market.Some(0)},
	}}
	c, clock, store := newTestCoordinator(Sources{History: []provider.HistorySource{primary, secondary}})
	ctx := context.Background()

	res, err := c.History(ctx, "600519.SH", "20240101", "20240110")
	require.NoError(t, err)
	assert.Equal(t, "secondary", res.Provider)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "2024-01-03", res.Data[0].Date)

	_, ok, err := store.Get(ctx, cache.HistoryKey("600519", "20240101", "20240110"))
	require.NoError(t, err)
	assert.True(t, ok)

	// past range: same calendar day stays fresh
	clock.now = testStart.Add(10 * time.Hour)
	res, err = c.History(ctx, "600519", "20240101", "20240110")
	require.NoError(t, err)
	assert.Equal(t, OriginCache, res.Origin)
	assert.Equal(t, 1, secondary.calls)

	// next day expires it
	clock.now = testStart.Add(15 * time.Hour)
	_, err = c.History(ctx, "600519", "20240101", "20240110")
	require.NoError(t, err)
	assert.Equal(t, 2, secondary.calls)
}

func TestHistory_OpenRangeUsesTTL(t *testing.T) {
	src := &fakeHistory{name: "primary", rows: []market.QuoteHistoryRow{bar("2024-03-15", 10)}}
	c, clock, _ := newTestCoordinator(Sources{History: []provider.HistorySource{src}})
	ctx := context.Background()

	_, err := c.History(ctx, "000001", "20240301", "20240315")
	require.NoError(t, err)

	clock.now = testStart.Add(61 * time.Minute)
	_, err = c.History(ctx, "000001", "20240301", "20240315")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "range ending today refreshes hourly")
}

func TestHistory_InvalidInput(t *testing.T) {
	c, _, _ := newTestCoordinator(Sources{})
	ctx := context.Background()

	_, err := c.History(ctx, "999999", "20240101", "20240110")
	assert.Error(t, err)
	_, err = c.History(ctx, "600519", "2024-01-01", "20240110")
	assert.Error(t, err)
	_, err = c.History(ctx, "600519", "20240110", "20240101")
	assert.Error(t, err)
}

func TestHistory_AllFailIsEmpty(t *testing.T) {
	c, _, _ := newTestCoordinator(Sources{History: []provider.HistorySource{
		&fakeHistory{name: "a", err: errDown},
		&fakeHistory{name: "b"},
	}})

	res, err := c.History(context.Background(), "600519", "20240101", "20240110")
	require.NoError(t, err)
	assert.Equal(t, OriginDefault, res.Origin)
	assert.Empty(t, res.Data)
}

func TestIndicators(t *testing.T) {
	var rows []market.QuoteHistoryRow
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		rows = append(rows, bar(start.AddDate(0, 0, i).Format(market.DateLayout), 10+float64(i%5)))
	}
	c, _, _ := newTestCoordinator(Sources{History: []provider.HistorySource{&fakeHistory{name: "a", rows: rows}}})

	res, err := c.Indicators(context.Background(), "600519", "20240101", "20240130")
	require.NoError(t, err)
	require.Len(t, res.Data, 30)
	assert.False(t, res.Data[3].MA5.Valid)
	assert.True(t, res.Data[4].MA5.Valid)
	assert.True(t, res.Data[29].MA20.Valid)
}

func TestFundamentals_FirstCompleteWins(t *testing.T) {
	full := &fakeFundamentals{name: "full", rec: market.FundamentalRecord{
		PE: market.Some(15), PB: market.Some(1.5), ROE: market.Some(12), RevenueGrowth: market.Some(8), NetProfitGrowth: market.Some(9),
	}}
	other := &fakeFundamentals{name: "other", rec: market.FundamentalRecord{PE: market.Some(99)}}
	c, _, _ := newTestCoordinator(Sources{Fundamentals: []provider.FundamentalSource{full, other}})

	res, err := c.Fundamentals(context.Background(), "600519")
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin)
	assert.Equal(t, market.Some(15), res.Data.PE)
	assert.Equal(t, market.Provenance("full"), res.Data.Provenance)
	assert.Equal(t, 0, other.calls)
}

func TestFundamentals_FillsOnlyMissingFields(t *testing.T) {
	down := &fakeFundamentals{name: "down", err: errDown}
	quote := &fakeFundamentals{name: "quote", rec: market.FundamentalRecord{PE: market.Some(30), PB: market.Some(8)}}
	report := &fakeFundamentals{name: "report", rec: market.FundamentalRecord{
		PE: market.Some(1), ROE: market.Some(24), RevenueGrowth: market.Some(18), NetProfitGrowth: market.Some(19),
	}}
	c, _, _ := newTestCoordinator(Sources{Fundamentals: []provider.FundamentalSource{down, quote, report}})

	res, err := c.Fundamentals(context.Background(), "600519")
	require.NoError(t, err)

	rec := res.Data
	assert.True(t, rec.Complete())
	assert.Equal(t, market.Some(30), rec.PE, "filled fields are never overwritten")
	assert.Equal(t, market.Some(24), rec.ROE)
	assert.Equal(t, "quote+report", rec.Source)
	assert.False(t, rec.Defaulted())
}

func TestFundamentals_AllNullRowIsNotAccepted(t *testing.T) {
	blank := &fakeFundamentals{name: "blank"}
	partial := &fakeFundamentals{name: "partial", rec: market.FundamentalRecord{ROE: market.Some(5)}}
	c, _, _ := newTestCoordinator(Sources{Fundamentals: []provider.FundamentalSource{blank, partial}})

	res, err := c.Fundamentals(context.Background(), "000001")
	require.NoError(t, err)
	assert.Equal(t, "partial", res.Provider)
	assert.False(t, res.Data.PE.Valid, "no defaults blended into a real record")
}

func TestFundamentals_Defaults(t *testing.T) {
	src := &fakeFundamentals{name: "down", err: errDown}
	c, _, store := newTestCoordinator(Sources{Fundamentals: []provider.FundamentalSource{src}})
	ctx := context.Background()

	res, err := c.Fundamentals(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, OriginDefault, res.Origin)
	assert.True(t, res.Data.Defaulted())
	assert.Equal(t, market.Some(market.DefaultPE), res.Data.PE)
	assert.Equal(t, 0, store.Len(), "defaults are not cached")

	_, err = c.Fundamentals(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestFundamentals_CacheProvenance(t *testing.T) {
	src := &fakeFundamentals{name: "primary", rec: market.FundamentalRecord{PE: market.Some(10)}}
	c, clock, _ := newTestCoordinator(Sources{Fundamentals: []provider.FundamentalSource{src}})
	ctx := context.Background()

	_, err := c.Fundamentals(ctx, "600519")
	require.NoError(t, err)

	clock.now = testStart.Add(time.Hour)
	res, err := c.Fundamentals(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, OriginCache, res.Origin)
	assert.Equal(t, market.ProvenanceCache, res.Data.Provenance)

	src.err = errDown
	clock.now = testStart.Add(72 * time.Hour)
	res, err = c.Fundamentals(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, OriginStale, res.Origin)
	assert.Equal(t, market.Some(10), res.Data.PE)
}

func TestUniverse_WritesBackup(t *testing.T) {
	backup := localfile.NewBackup(filepath.Join(t.TempDir(), "stock_list_backup.csv"))
	primary := &fakeUniverse{name: "primary", table: provider.Table[market.StockInfo]{Rows: []market.StockInfo{
		{Code: "600519.SH", Name: "贵州茅台"},
		{Code: "600519", Name: "重复"},
		{Code: "bogus", Name: "x"},
		{Code: "000001", Name: "平安银行"},
	}}}
	c, _, _ := newTestCoordinator(Sources{Universe: []provider.UniverseSource{primary}, Backup: backup})

	res, err := c.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []market.StockInfo{{Code: "600519", Name: "贵州茅台"}, {Code: "000001", Name: "平安银行"}}, res.Data)

	saved, err := backup.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Data, saved.Rows)
}

func TestUniverse_BackupThenDefault(t *testing.T) {
	dir := t.TempDir()
	backup := localfile.NewBackup(filepath.Join(dir, "backup.csv"))
	require.NoError(t, backup.Write([]market.StockInfo{{Code: "601318", Name: "中国平安"}}))

	down := &fakeUniverse{name: "down", err: errDown}
	c, _, store := newTestCoordinator(Sources{Universe: []provider.UniverseSource{down}, Backup: backup})

	res, err := c.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, localfile.Name, res.Provider)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 0, store.Len(), "backup reads are not cached")

	none, _, _ := newTestCoordinator(Sources{Universe: []provider.UniverseSource{down}})
	res, err = none.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OriginDefault, res.Origin)
	assert.Len(t, res.Data, 20)
}

func TestUniverse_TTL(t *testing.T) {
	src := &fakeUniverse{name: "primary", table: provider.Table[market.StockInfo]{Rows: []market.StockInfo{{Code: "600000", Name: "浦发银行"}}}}
	c, clock, _ := newTestCoordinator(Sources{Universe: []provider.UniverseSource{src}})
	ctx := context.Background()

	_, err := c.Universe(ctx)
	require.NoError(t, err)

	clock.now = testStart.Add(23 * time.Hour)
	_, err = c.Universe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	clock.now = testStart.Add(25 * time.Hour)
	_, err = c.Universe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCoordinator_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	src := &fakeBoards{name: "down", err: errDown}
	c := New(cache.New(cache.NewMemoryStore(), nil, nil), Sources{Boards: []provider.BoardSource{src}}, m, logger.NewNop())

	_, err := c.Boards(context.Background())
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["marketlens_provider_attempts_total"])
	assert.True(t, names["marketlens_fallbacks_total"])
	assert.True(t, names["marketlens_cache_lookups_total"])
}
