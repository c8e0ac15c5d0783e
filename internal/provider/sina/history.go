package sina

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// maxBars is the upstream datalen cap
const maxBars = 1023

// History fetches daily bars counted back from today and keeps the requested
// range. Bars are unadjusted; change is derived from the previous close.
func (c *Client) History(ctx context.Context, sym market.Symbol, start, end string) (provider.Table[market.QuoteHistoryRow], error) {
	from, err := time.Parse(market.RangeLayout, start)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}
	to, err := time.Parse(market.RangeLayout, end)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	// calendar days overshoot trading days, which is fine for a cap
	n := int(c.now().Sub(from).Hours()/24) + 1
	if n > maxBars {
		n = maxBars
	}
	if n < 1 {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, provider.ErrEmpty)
	}

	params := url.Values{}
	params.Set("symbol", sym.Prefixed())
	params.Set("scale", "240")
	params.Set("ma", "no")
	params.Set("datalen", strconv.Itoa(n))

	text, err := c.fetchText(ctx, c.baseURL, "/quotes_service/api/json_v2.php/CN_MarketData.getKLineData", params)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	rows, err := parseBars(text, from.Format(market.DateLayout), to.Format(market.DateLayout))
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": sym.String(),
		"count":  len(rows),
	}).Debug("Fetched history")

	return provider.Table[market.QuoteHistoryRow]{Rows: rows}, nil
}

func parseBars(text, from, to string) ([]market.QuoteHistoryRow, error) {
	if !gjson.Valid(text) {
		return nil, provider.ErrSchema
	}
	doc := gjson.Parse(text)
	if !doc.IsArray() {
		return nil, provider.ErrEmpty
	}

	var (
		rows      []market.QuoteHistoryRow
		prevClose market.Num
	)
	for _, bar := range doc.Array() {
		row := market.QuoteHistoryRow{
			Date:   bar.Get("day").String(),
			Open:   market.ParseNum(bar.Get("open").String()),
			Close:  market.ParseNum(bar.Get("close").String()),
			High:   market.ParseNum(bar.Get("high").String()),
			Low:    market.ParseNum(bar.Get("low").String()),
			Volume: market.ParseNum(bar.Get("volume").String()).Map(sharesToLots),
		}
		if len(row.Date) > len(market.DateLayout) {
			row.Date = row.Date[:len(market.DateLayout)]
		}

		if prevClose.Valid && prevClose.Value != 0 && row.Close.Valid {
			row.PctChange = market.Some(row.Close.Value/prevClose.Value - 1)
			if row.High.Valid && row.Low.Valid {
				row.Amplitude = market.Some((row.High.Value - row.Low.Value) / prevClose.Value)
			}
		}
		prevClose = row.Close

		if row.Date < from || row.Date > to {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, provider.ErrEmpty
	}
	return rows, nil
}
