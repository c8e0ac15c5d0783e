package eastmoney

import (
	"context"
	"net/url"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// History fetches forward-adjusted daily bars
func (c *Client) History(ctx context.Context, sym market.Symbol, start, end string) (provider.Table[market.QuoteHistoryRow], error) {
	params := url.Values{}
	params.Set("secid", sym.SecID())
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", klineFields)
	params.Set("klt", "101")
	params.Set("fqt", "1")
	params.Set("beg", start)
	params.Set("end", end)

	doc, err := c.fetchJSON(ctx, c.hisURL, "/api/qt/stock/kline/get", params)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	rows, err := parseKlines(doc)
	if err != nil {
		return provider.Table[market.QuoteHistoryRow]{}, provider.Fail(Name, provider.OpHistory, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": sym.String(),
		"count":  len(rows),
	}).Debug("Fetched history")

	return provider.Table[market.QuoteHistoryRow]{Rows: rows}, nil
}
