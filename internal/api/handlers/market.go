package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/marketlens/internal/indicator"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/pkg/logger"
)

// defaultHistoryDays is the range used when start is omitted
const defaultHistoryDays = 180

// MarketSource is the read side of the retrieval coordinator
type MarketSource interface {
	Now() time.Time
	BoardsWithin(ctx context.Context, days int) (retrieval.Result[[]market.BoardSnapshot], error)
	History(ctx context.Context, code, start, end string) (retrieval.Result[[]market.QuoteHistoryRow], error)
	Indicators(ctx context.Context, code, start, end string) (retrieval.Result[[]market.IndicatorRow], error)
	Fundamentals(ctx context.Context, code string) (retrieval.Result[market.FundamentalRecord], error)
}

// MarketHandler serves boards, history, indicators and fundamentals
// ⭐ SSOT: 시세/지표 API 핸들러는 이 구조체에서만
type MarketHandler struct {
	source MarketSource
	logger *logger.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(src MarketSource, log *logger.Logger) *MarketHandler {
	return &MarketHandler{source: src, logger: log}
}

// GetBoards returns the board snapshot table
// GET /api/boards?days=7
func (h *MarketHandler) GetBoards(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 0)

	res, err := h.source.BoardsWithin(r.Context(), days)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondResult(w, res)
}

// GetHistory returns cleaned daily bars
// GET /api/stocks/{code}/history?start=20240101&end=20240331
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	start, end := h.dateRange(r)

	res, err := h.source.History(r.Context(), code, start, end)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondResult(w, res)
}

// GetIndicators returns bars with indicator columns
// GET /api/stocks/{code}/indicators?start=20240101&end=20240331
func (h *MarketHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	start, end := h.dateRange(r)

	res, err := h.source.Indicators(r.Context(), code, start, end)
	if err != nil {
		respondFailure(w, err)
		return
	}

	env := resultEnvelope(res)
	env.Reference = indicator.References()
	respondJSON(w, http.StatusOK, env)
}

// GetFundamentals returns the screening ratios
// GET /api/stocks/{code}/fundamentals
func (h *MarketHandler) GetFundamentals(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	res, err := h.source.Fundamentals(r.Context(), code)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondResult(w, res)
}

// dateRange defaults end to today and start to defaultHistoryDays before end
func (h *MarketHandler) dateRange(r *http.Request) (string, string) {
	q := r.URL.Query()
	end := q.Get("end")
	start := q.Get("start")

	if end == "" {
		end = h.source.Now().Format(market.RangeLayout)
	}
	if start == "" {
		to, err := time.Parse(market.RangeLayout, end)
		if err != nil {
			// let the coordinator report the bad end date
			return end, end
		}
		start = to.AddDate(0, 0, -defaultHistoryDays).Format(market.RangeLayout)
	}
	return start, end
}
