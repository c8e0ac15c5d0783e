package sina

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

const (
	pageSize = 100
	maxPages = 80
)

// Universe pages through the hs_a node listing until an empty page
func (c *Client) Universe(ctx context.Context) (provider.Table[market.StockInfo], error) {
	var (
		stocks   []market.StockInfo
		degraded bool
	)

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, err)
		}

		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("num", strconv.Itoa(pageSize))
		params.Set("sort", "symbol")
		params.Set("asc", "1")
		params.Set("node", "hs_a")

		text, err := c.fetchText(ctx, c.financeURL, "/quotes_service/api/json_v2.php/Market_Center.getHQNodeData", params)
		if err != nil {
			// a failed later page keeps the pages already read
			if len(stocks) > 0 {
				break
			}
			return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, err)
		}

		doc := gjson.Parse(text)
		if !doc.IsArray() || len(doc.Array()) == 0 {
			break
		}

		for _, row := range doc.Array() {
			code, name, d := provider.CodeName(row)
			if d {
				degraded = true
			}
			if code == "" {
				continue
			}
			stocks = append(stocks, market.StockInfo{Code: code, Name: name})
		}

		if len(doc.Array()) < pageSize {
			break
		}
	}

	if len(stocks) == 0 {
		return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, provider.ErrEmpty)
	}

	c.logger.WithField("count", len(stocks)).Debug("Fetched universe")
	return provider.Table[market.StockInfo]{Rows: stocks, Degraded: degraded}, nil
}
