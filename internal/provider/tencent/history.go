package tencent

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// maxBars is the upstream cap per request
const maxBars = 640

// History fetches forward-adjusted daily bars.
// The upstream carries no percent change; it is derived from the previous
// close inside the returned range, so the first row's change is undefined.
func (c *Client) History(ctx context.Context, sym market.Symbol, start, end string) (provider.Table[market.QuoteHistoryRow], error) {
	from, err := time.Parse(market.RangeLayout, start)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}
	to, err := time.Parse(market.RangeLayout, end)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	key := sym.Prefixed()
	params := url.Values{}
	params.Set("param", fmt.Sprintf("%s,day,%s,%s,%d,qfq", key, from.Format(market.DateLayout), to.Format(market.DateLayout), maxBars))

	body, err := c.fetch(ctx, c.baseURL, "/appstock/app/fqkline/get", params)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	rows, err := parseBars(body, key)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": sym.String(),
		"count":  len(rows),
	}).Debug("Fetched history")

	return provider.Table[market.QuoteHistoryRow]{Rows: rows}, nil
}

func parseBars(body []byte, key string) ([]market.QuoteHistoryRow, error) {
	if !gjson.ValidBytes(body) {
		return nil, provider.ErrSchema
	}
	node := gjson.GetBytes(body, "data."+key)
	if !node.Exists() {
		return nil, provider.ErrEmpty
	}

	bars := node.Get("qfqday")
	if !bars.IsArray() {
		bars = node.Get("day")
	}
	if !bars.IsArray() {
		return nil, provider.ErrEmpty
	}

	var (
		rows      []market.QuoteHistoryRow
		prevClose market.Num
	)
	for _, bar := range bars.Array() {
		cells := bar.Array()
		if len(cells) < 6 {
			continue
		}
		row := market.QuoteHistoryRow{
			Date:   cells[0].String(),
			Open:   market.ParseNum(cells[1].String()),
			Close:  market.ParseNum(cells[2].String()),
			High:   market.ParseNum(cells[3].String()),
			Low:    market.ParseNum(cells[4].String()),
			Volume: market.ParseNum(cells[5].String()),
		}
		if prevClose.Valid && prevClose.Value != 0 && row.Close.Valid {
			row.PctChange = market.Some(row.Close.Value/prevClose.Value - 1)
			if row.High.Valid && row.Low.Valid {
				row.Amplitude = market.Some((row.High.Value - row.Low.Value) / prevClose.Value)
			}
		}
		prevClose = row.Close
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, provider.ErrEmpty
	}
	return rows, nil
}
