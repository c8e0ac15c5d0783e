package screening

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketlens/internal/cache"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/pkg/logger"
)

type fakeSource struct {
	stocks    []market.StockInfo
	records   map[string]market.FundamentalRecord
	defaulted map[string]bool
	errs      map[string]error
	calls     int
}

func newFakeSource(n int) *fakeSource {
	src := &fakeSource{
		records:   map[string]market.FundamentalRecord{},
		defaulted: map[string]bool{},
		errs:      map[string]error{},
	}
	for i := 0; i < n; i++ {
		code := fmt.Sprintf("%06d", 600000+i)
		src.stocks = append(src.stocks, market.StockInfo{Code: code, Name: "股票" + code})
		src.records[code] = record(15, 1.5, 12, 8)
	}
	return src
}

func (f *fakeSource) Universe(context.Context) (retrieval.Result[[]market.StockInfo], error) {
	return retrieval.Result[[]market.StockInfo]{Data: f.stocks, Origin: retrieval.OriginLive}, nil
}

func (f *fakeSource) Fundamentals(_ context.Context, code string) (retrieval.Result[market.FundamentalRecord], error) {
	f.calls++
	if err := f.errs[code]; err != nil {
		return retrieval.Result[market.FundamentalRecord]{}, err
	}
	if f.defaulted[code] {
		return retrieval.Result[market.FundamentalRecord]{Data: market.DefaultFundamentals(code), Origin: retrieval.OriginDefault}, nil
	}
	return retrieval.Result[market.FundamentalRecord]{Data: f.records[code], Origin: retrieval.OriginLive}, nil
}

type fakeRecorder struct {
	runs []market.ScreeningResult
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, res market.ScreeningResult, _ Filter) error {
	r.runs = append(r.runs, res)
	return r.err
}
func (r *fakeRecorder) Recent(context.Context, int) ([]RunRecord, error) { return nil, nil }
func (r *fakeRecorder) Close() error                                     { return nil }

func record(pe, pb, roe, growth float64) market.FundamentalRecord {
	return market.FundamentalRecord{
		PE:              market.Some(pe),
		PB:              market.Some(pb),
		ROE:             market.Some(roe),
		RevenueGrowth:   market.Some(growth),
		NetProfitGrowth: market.Some(growth),
		Source:          "eastmoney",
	}
}

var wideFilter = Filter{PEMin: 0, PEMax: 30, PBMin: 0, PBMax: 5, ROEMin: 10, GrowthMin: 0}

type countingSleeper struct{ calls int }

func (s *countingSleeper) sleep(context.Context, time.Duration) error {
	s.calls++
	return nil
}

func newTestEngine(t *testing.T, src Source, rec Recorder) (*Engine, *countingSleeper, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	c := cache.New(cache.NewMemoryStore(), func() time.Time { return now }, logger.NewNop())
	sl := &countingSleeper{}
	e := NewEngine(src, c, rec, nil, logger.NewNop(), DefaultOptions()).WithSleeper(sl.sleep)
	return e, sl, &now
}

func TestClassify(t *testing.T) {
	stock := market.StockInfo{Code: "600519", Name: "贵州茅台"}

	tests := []struct {
		name   string
		filter Filter
		rec    market.FundamentalRecord
		want   Outcome
	}{
		{"accept inside ranges", wideFilter, record(15, 1.5, 12, 8), OutcomeAccept},
		{"pe above max", wideFilter, record(35, 1.5, 12, 8), OutcomeReject},
		{"pb below min", Filter{PBMin: 1, PBMax: 5}, record(15, 0.5, 12, 8), OutcomeReject},
		{"roe below min", wideFilter, record(15, 1.5, 9.99, 8), OutcomeReject},
		{"growth below min", Filter{GrowthMin: 10}, record(15, 1.5, 12, 8), OutcomeReject},
		{"zero ranges mean no constraint", Filter{}, record(1500, 80, 0, 0), OutcomeAccept},
		{"pe zero range but pb constrained", Filter{PBMin: 0, PBMax: 1}, record(900, 2, 1, 1), OutcomeReject},
		{"negative pe never screened", Filter{}, record(-5, 1, 12, 8), OutcomeImplausible},
		{"negative pb never screened", Filter{}, record(5, -1, 12, 8), OutcomeImplausible},
		{"pe above 2000", Filter{}, record(2000.5, 1, 12, 8), OutcomeImplausible},
		{"pb above 100", Filter{}, record(10, 100.1, 12, 8), OutcomeImplausible},
		{"boundaries are plausible", Filter{}, record(2000, 100, 12, 8), OutcomeAccept},
		{"missing roe skipped", wideFilter, market.FundamentalRecord{PE: market.Some(10), PB: market.Some(1), RevenueGrowth: market.Some(1)}, OutcomeSkip},
		{"missing net profit growth skipped", wideFilter, market.FundamentalRecord{PE: market.Some(15), PB: market.Some(1.5), ROE: market.Some(12), RevenueGrowth: market.Some(8)}, OutcomeSkip},
		{"empty record skipped", wideFilter, market.FundamentalRecord{}, OutcomeSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, match, err := Classify(tt.filter, stock, tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if got == OutcomeAccept {
				assert.Equal(t, "600519", match.Code)
				assert.Equal(t, "贵州茅台", match.Name)
				assert.Equal(t, tt.rec.PE.Value, match.PE)
				assert.Equal(t, tt.rec.NetProfitGrowth.Value, match.NetProfitGrowth)
			}
		})
	}
}

func TestRun_AcceptsAndCounts(t *testing.T) {
	src := newFakeSource(6)
	src.records["600001"] = record(50, 1, 12, 8) // reject
	src.records["600002"] = record(-3, 1, 12, 8) // implausible
	src.records["600003"] = market.FundamentalRecord{PE: market.Some(10)}
	src.errs["600004"] = errors.New("invalid symbol")

	e, _, _ := newTestEngine(t, src, nil)
	res, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.Aborted)
	assert.False(t, res.FromCache)
	assert.Equal(t, market.ScreeningStats{
		Total: 6, Processed: 6, Accepted: 2, Rejected: 1, Skipped: 1, Implausible: 1, Errors: 1,
	}, res.Stats)

	codes := []string{}
	for _, m := range res.Matches {
		codes = append(codes, m.Code)
	}
	assert.Equal(t, []string{"600000", "600005"}, codes)
}

func TestRun_ErrorBudgetAbortsWithPartialResult(t *testing.T) {
	src := newFakeSource(40)
	for i := 3; i < 40; i++ {
		src.defaulted[fmt.Sprintf("%06d", 600000+i)] = true
	}

	e, _, _ := newTestEngine(t, src, nil)
	res, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err, "budget exhaustion is not an error")

	assert.True(t, res.Aborted)
	assert.Equal(t, 21, res.Stats.Errors, "stops at the 21st error")
	assert.Equal(t, 24, res.Stats.Processed)
	assert.Len(t, res.Matches, 3)
	assert.Equal(t, 24, src.calls)
}

func TestRun_TwentyErrorsStillCompletes(t *testing.T) {
	src := newFakeSource(25)
	for i := 0; i < 20; i++ {
		src.defaulted[fmt.Sprintf("%06d", 600000+i)] = true
	}

	e, _, _ := newTestEngine(t, src, nil)
	res, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err)

	assert.False(t, res.Aborted)
	assert.Equal(t, 20, res.Stats.Errors)
	assert.Equal(t, 25, res.Stats.Processed)
	assert.Len(t, res.Matches, 5)
}

func TestRun_UseDefaults(t *testing.T) {
	src := newFakeSource(3)
	src.defaulted["600001"] = true

	e, _, _ := newTestEngine(t, src, nil)
	e.opts.UseDefaults = true

	res, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Errors)
	assert.Equal(t, 3, res.Stats.Accepted, "defaults 20/2/10/5 pass the wide filter")
}

func TestRun_PausesEveryTenSymbols(t *testing.T) {
	tests := []struct {
		stocks int
		want   int
	}{
		{9, 0},
		{10, 0},
		{11, 1},
		{20, 1},
		{25, 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d symbols", tt.stocks), func(t *testing.T) {
			e, sl, _ := newTestEngine(t, newFakeSource(tt.stocks), nil)
			_, err := e.Run(context.Background(), wideFilter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sl.calls)
		})
	}
}

func TestRun_Progress(t *testing.T) {
	e, _, _ := newTestEngine(t, newFakeSource(12), nil)

	var reports []Progress
	e.OnProgress(func(p Progress) { reports = append(reports, p) })

	_, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err)

	require.Len(t, reports, 3)
	assert.Equal(t, 5, reports[0].Processed)
	assert.Equal(t, 10, reports[1].Processed)
	assert.Equal(t, Progress{Processed: 12, Total: 12, Matched: 12, Done: true}, reports[2])
}

func TestRun_TruncatesUniverse(t *testing.T) {
	src := newFakeSource(8)
	e, _, _ := newTestEngine(t, src, nil)

	f := wideFilter
	f.MaxStocks = 5
	res, err := e.Run(context.Background(), f)
	require.NoError(t, err)

	assert.True(t, res.Truncated)
	assert.Equal(t, 5, res.Stats.Total)
	assert.Equal(t, 5, src.calls)
}

func TestRun_DefaultCap(t *testing.T) {
	src := newFakeSource(DefaultMaxStocks + 10)
	e, _, _ := newTestEngine(t, src, nil)
	e.opts.ProgressEvery = 0

	res, err := e.Run(context.Background(), Filter{})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, DefaultMaxStocks, res.Stats.Processed)
}

func TestRun_CachedForOneHour(t *testing.T) {
	src := newFakeSource(4)
	e, _, now := newTestEngine(t, src, nil)
	ctx := context.Background()

	first, err := e.Run(ctx, wideFilter)
	require.NoError(t, err)
	require.Equal(t, 4, src.calls)

	*now = now.Add(59 * time.Minute)
	second, err := e.Run(ctx, wideFilter)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, 4, src.calls, "cached result served without upstream calls")

	other := wideFilter
	other.ROEMin = 11
	_, err = e.Run(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 8, src.calls, "a different tuple is a different key")

	*now = now.Add(2 * time.Minute)
	third, err := e.Run(ctx, wideFilter)
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, 12, src.calls)
}

func TestRun_AbortedRunNotCached(t *testing.T) {
	src := newFakeSource(30)
	for _, s := range src.stocks {
		src.defaulted[s.Code] = true
	}
	e, _, _ := newTestEngine(t, src, nil)

	first, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err)
	require.True(t, first.Aborted)

	second, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_RecordsRuns(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	e, _, _ := newTestEngine(t, newFakeSource(2), rec)

	res, err := e.Run(context.Background(), wideFilter)
	require.NoError(t, err, "recorder failure never fails the run")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.RunID, rec.runs[0].RunID)

	_, err = e.Run(context.Background(), wideFilter)
	require.NoError(t, err)
	assert.Len(t, rec.runs, 1, "cache hits are not recorded")
}

func TestRun_InvalidFilter(t *testing.T) {
	e, _, _ := newTestEngine(t, newFakeSource(1), nil)
	_, err := e.Run(context.Background(), Filter{PEMin: 10, PEMax: 5})
	assert.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	src := newFakeSource(5)
	e, _, _ := newTestEngine(t, src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, wideFilter)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, src.calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
