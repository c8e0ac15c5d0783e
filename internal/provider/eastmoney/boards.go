package eastmoney

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// boardWindow is how far back each board's daily bars are requested;
// the latest bar inside the window becomes the snapshot row.
const boardWindow = 7 * 24 * time.Hour

// industryBoards selects industry boards in clist
const industryBoards = "m:90+t:2"

// Boards lists industry boards and takes each board's latest daily bar
func (c *Client) Boards(ctx context.Context) (provider.Table[market.BoardSnapshot], error) {
	list, degraded, err := c.boardList(ctx)
	if err != nil {
		return provider.Table[market.BoardSnapshot]{}, provider.Fail(Name, provider.OpBoards, err)
	}

	now := c.now()
	start := now.Add(-boardWindow).Format(market.RangeLayout)
	end := now.Format(market.RangeLayout)

	rows := make([]market.BoardSnapshot, 0, len(list))
	failed := 0
	for _, b := range list {
		if err := ctx.Err(); err != nil {
			return provider.Table[market.BoardSnapshot]{}, provider.Fail(Name, provider.OpBoards, err)
		}

		bar, err := c.boardLatest(ctx, b.Code, start, end)
		if err != nil {
			// one board without bars does not invalidate the table
			failed++
			continue
		}
		rows = append(rows, market.BoardSnapshot{
			Code:         b.Code,
			Name:         b.Name,
			Date:         bar.Date,
			Open:         bar.Open,
			Close:        bar.Close,
			High:         bar.High,
			Low:          bar.Low,
			Volume:       bar.Volume,
			Turnover:     bar.Turnover,
			Amplitude:    bar.Amplitude,
			PctChange:    bar.PctChange,
			TurnoverRate: bar.TurnoverRate,
		})
	}

	if len(rows) == 0 {
		return provider.Table[market.BoardSnapshot]{}, provider.Fail(Name, provider.OpBoards, provider.ErrEmpty)
	}

	c.logger.WithFields(map[string]interface{}{
		"boards": len(rows),
		"failed": failed,
	}).Debug("Fetched board snapshot")

	return provider.Table[market.BoardSnapshot]{Rows: rows, Degraded: degraded}, nil
}

func (c *Client) boardList(ctx context.Context) ([]market.StockInfo, bool, error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "1000")
	params.Set("po", "1")
	params.Set("np", "1")
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fid", "f3")
	params.Set("fs", industryBoards)
	params.Set("fields", "f12,f14")

	doc, err := c.fetchJSON(ctx, c.baseURL, "/api/qt/clist/get", params)
	if err != nil {
		return nil, false, err
	}
	return parseListing(doc)
}

func (c *Client) boardLatest(ctx context.Context, code, start, end string) (market.QuoteHistoryRow, error) {
	params := url.Values{}
	params.Set("secid", "90."+code)
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", klineFields)
	params.Set("klt", "101")
	params.Set("fqt", "0")
	params.Set("beg", start)
	params.Set("end", end)
	params.Set("lmt", strconv.Itoa(10))

	doc, err := c.fetchJSON(ctx, c.hisURL, "/api/qt/stock/kline/get", params)
	if err != nil {
		return market.QuoteHistoryRow{}, err
	}
	bars, err := parseKlines(doc)
	if err != nil {
		return market.QuoteHistoryRow{}, err
	}
	return bars[len(bars)-1], nil
}
