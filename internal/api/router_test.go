package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketlens/internal/api/handlers"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/internal/scheduler"
	"github.com/wonny/marketlens/internal/screening"
	"github.com/wonny/marketlens/pkg/database"
	"github.com/wonny/marketlens/pkg/logger"
	"github.com/wonny/marketlens/pkg/metrics"
)

type fakeMarket struct {
	now       time.Time
	days      int
	start     string
	end       string
	histErr   error
	panicking bool
}

func (f *fakeMarket) Now() time.Time { return f.now }

func (f *fakeMarket) BoardsWithin(_ context.Context, days int) (retrieval.Result[[]market.BoardSnapshot], error) {
	if f.panicking {
		panic("boom")
	}
	f.days = days
	return retrieval.Result[[]market.BoardSnapshot]{
		Data:     []market.BoardSnapshot{{Code: "BK0475", Name: "银行", PctChange: market.Some(1.23)}},
		Origin:   retrieval.OriginLive,
		Provider: "eastmoney",
	}, nil
}

func (f *fakeMarket) History(_ context.Context, code, start, end string) (retrieval.Result[[]market.QuoteHistoryRow], error) {
	f.start, f.end = start, end
	if f.histErr != nil {
		return retrieval.Result[[]market.QuoteHistoryRow]{}, f.histErr
	}
	return retrieval.Result[[]market.QuoteHistoryRow]{
		Data:   []market.QuoteHistoryRow{{Date: "2024-03-14", Close: market.Some(1700)}},
		Origin: retrieval.OriginCache,
	}, nil
}

func (f *fakeMarket) Indicators(_ context.Context, code, start, end string) (retrieval.Result[[]market.IndicatorRow], error) {
	f.start, f.end = start, end
	return retrieval.Result[[]market.IndicatorRow]{
		Data:   []market.IndicatorRow{{QuoteHistoryRow: market.QuoteHistoryRow{Date: "2024-03-14"}}},
		Origin: retrieval.OriginLive,
	}, nil
}

func (f *fakeMarket) Fundamentals(_ context.Context, code string) (retrieval.Result[market.FundamentalRecord], error) {
	return retrieval.Result[market.FundamentalRecord]{
		Data:   market.FundamentalRecord{Code: code, PE: market.Some(25.5), PB: market.Some(8)},
		Origin: retrieval.OriginLive,
	}, nil
}

type fakeUniverse struct{}

func (fakeUniverse) Universe(context.Context) (retrieval.Result[[]market.StockInfo], error) {
	return retrieval.Result[[]market.StockInfo]{
		Data: []market.StockInfo{
			{Code: "600519", Name: "贵州茅台"},
			{Code: "000858", Name: "五粮液"},
		},
		Origin: retrieval.OriginCache,
	}, nil
}

type fakeScreener struct {
	got screening.Filter
}

func (f *fakeScreener) Run(_ context.Context, filter screening.Filter) (market.ScreeningResult, error) {
	f.got = filter
	return market.ScreeningResult{
		RunID:   "run-1",
		Matches: []market.ScreeningMatch{{Code: "600519"}},
	}, nil
}

type fakeRunRecorder struct{ *screening.NoopRecorder }

func (fakeRunRecorder) Recent(context.Context, int) ([]screening.RunRecord, error) {
	return []screening.RunRecord{{RunID: "run-1"}}, nil
}

type fakeDB struct{ healthy bool }

func (f fakeDB) HealthCheck(context.Context) database.HealthStatus {
	return database.HealthStatus{Healthy: f.healthy}
}

type fakeJobs struct{}

func (fakeJobs) Stats() []scheduler.JobStats {
	return []scheduler.JobStats{{JobName: "warm_boards", Schedule: "0 */15 * * * *"}}
}

type fixture struct {
	market   *fakeMarket
	screener *fakeScreener
	router   http.Handler
}

func newFixture(t *testing.T, db handlers.HealthChecker) *fixture {
	t.Helper()
	log := logger.NewNop()
	f := &fixture{
		market:   &fakeMarket{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)},
		screener: &fakeScreener{},
	}
	f.router = NewRouter(Handlers{
		Market:    handlers.NewMarketHandler(f.market, log),
		Universe:  handlers.NewUniverseHandler(fakeUniverse{}, log),
		Screening: handlers.NewScreeningHandler(f.screener, nil, fakeRunRecorder{screening.NewNoopRecorder()}, log),
		System:    handlers.NewSystemHandler("marketlens", db, fakeJobs{}),
		Metrics:   metrics.New().Handler(),
	}, log)
	return f
}

func (f *fixture) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	code, body := newFixture(t, nil).get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = newFixture(t, fakeDB{healthy: false}).get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])
}

func TestBoards(t *testing.T) {
	f := newFixture(t, nil)
	code, body := f.get(t, "/api/boards?days=3")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, f.market.days)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "live", body["origin"])
	assert.Equal(t, "eastmoney", body["provider"])

	rows := body["data"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, 1.23, row["pct_change"])
	assert.Nil(t, row["close"], "undefined values are JSON null")
}

func TestBoards_DefaultDays(t *testing.T) {
	f := newFixture(t, nil)
	f.get(t, "/api/boards?days=abc")
	assert.Equal(t, 0, f.market.days, "coordinator applies the default window")
}

func TestHistory_DefaultRange(t *testing.T) {
	f := newFixture(t, nil)
	code, body := f.get(t, "/api/stocks/600519/history")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "20240315", f.market.end)
	assert.Equal(t, "20230917", f.market.start)
	assert.Equal(t, "cache", body["origin"])
}

func TestHistory_Errors(t *testing.T) {
	f := newFixture(t, nil)

	f.market.histErr = errors.New("invalid symbol \"abc\"")
	code, body := f.get(t, "/api/stocks/abc/history?start=20240101&end=20240131")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])

	f.market.histErr = context.Canceled
	code, _ = f.get(t, "/api/stocks/600519/history?start=20240101&end=20240131")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestIndicators_PassesRange(t *testing.T) {
	f := newFixture(t, nil)
	code, body := f.get(t, "/api/stocks/600519/indicators?start=20240101&end=20240131")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "20240101", f.market.start)
	assert.Equal(t, "20240131", f.market.end)

	ref, ok := body["reference"].(map[string]interface{})
	require.True(t, ok, "indicator response carries reference lines")
	assert.Equal(t, 80.0, ref["rsi_overbought"])
	assert.Equal(t, 20.0, ref["rsi_oversold"])
	assert.Equal(t, 20.0, ref["wr_overbought"])
	assert.Equal(t, 80.0, ref["wr_oversold"])
}

func TestHistory_NoReferenceLines(t *testing.T) {
	_, body := newFixture(t, nil).get(t, "/api/stocks/600519/history?start=20240101&end=20240131")
	_, ok := body["reference"]
	assert.False(t, ok)
}

func TestFundamentals(t *testing.T) {
	code, body := newFixture(t, nil).get(t, "/api/stocks/600519/fundamentals")
	assert.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "600519", data["code"])
	assert.Equal(t, 25.5, data["pe_dynamic"])
	assert.Nil(t, data["roe_pct"])
}

func TestUniverse(t *testing.T) {
	f := newFixture(t, nil)

	code, body := f.get(t, "/api/universe/search?q=gzmt")
	assert.Equal(t, http.StatusOK, code)
	hits := body["data"].([]interface{})
	require.Len(t, hits, 1)
	assert.Equal(t, "600519", hits[0].(map[string]interface{})["code"])

	code, _ = f.get(t, "/api/universe/search")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.get(t, "/api/universe/000858.SZ")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "五粮液", body["data"].(map[string]interface{})["name"])

	code, _ = f.get(t, "/api/universe/600000")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScreen(t *testing.T) {
	f := newFixture(t, nil)

	code, body := f.get(t, "/api/screen?preset=value&pe_max=12.5&max_stocks=50")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "run-1", body["data"].(map[string]interface{})["run_id"])

	want := screening.BuiltinPresets()["value"]
	want.PEMax = 12.5
	want.MaxStocks = 50
	assert.Equal(t, want, f.screener.got)

	tests := []string{
		"/api/screen?preset=nope",
		"/api/screen?pe_min=abc",
		"/api/screen?max_stocks=1.5",
		"/api/screen?pe_min=30&pe_max=10",
	}
	for _, path := range tests {
		code, _ := f.get(t, path)
		assert.Equal(t, http.StatusBadRequest, code, path)
	}
}

func TestScreenPresetsAndRuns(t *testing.T) {
	f := newFixture(t, nil)

	code, body := f.get(t, "/api/screen/presets")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["data"], "growth")

	code, body = f.get(t, "/api/screen/runs?limit=5")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
}

func TestJobs(t *testing.T) {
	code, body := newFixture(t, nil).get(t, "/api/jobs")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newFixture(t, nil).router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRecoveryMiddleware(t *testing.T) {
	f := newFixture(t, nil)
	f.market.panicking = true

	code, body := f.get(t, "/api/boards")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestNotFound(t *testing.T) {
	code, body := newFixture(t, nil).get(t, "/api/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}
