package sina

import (
	"context"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// Boards reads the industry board summary.
// The summary has no OHLC; the average constituent price stands in for close.
//
// Row layout: code,name,members,avg price,change,pct(%),volume(shares),turnover,...
func (c *Client) Boards(ctx context.Context) (provider.Table[market.BoardSnapshot], error) {
	params := url.Values{}
	params.Set("param", "industry")

	text, err := c.fetchText(ctx, c.baseURL, "/q/view/newFLJK.php", params)
	if err != nil {
		return provider.Table[market.BoardSnapshot]{}, provider.Fail(Name, provider.OpBoards, err)
	}

	rows, err := parseBoards(text, c.now().Format(market.DateLayout))
	if err != nil {
		return provider.Table[market.BoardSnapshot]{}, provider.Fail(Name, provider.OpBoards, err)
	}

	c.logger.WithField("boards", len(rows)).Debug("Fetched board snapshot")
	return provider.Table[market.BoardSnapshot]{Rows: rows}, nil
}

// parseBoards reads the object literal out of "var S_Finance_bankuai_industry = {...}"
func parseBoards(text, date string) ([]market.BoardSnapshot, error) {
	open := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if open < 0 || end <= open {
		return nil, provider.ErrSchema
	}
	obj := text[open : end+1]
	if !gjson.Valid(obj) {
		return nil, provider.ErrSchema
	}

	var rows []market.BoardSnapshot
	gjson.Parse(obj).ForEach(func(_, v gjson.Result) bool {
		parts := strings.Split(v.String(), ",")
		if len(parts) < 8 {
			return true
		}
		rows = append(rows, market.BoardSnapshot{
			Code:      parts[0],
			Name:      parts[1],
			Date:      date,
			Close:     market.ParseNum(parts[3]),
			PctChange: provider.Fraction(market.ParseNum(parts[5])),
			Volume:    market.ParseNum(parts[6]).Map(sharesToLots),
			Turnover:  market.ParseNum(parts[7]),
		})
		return true
	})

	if len(rows) == 0 {
		return nil, provider.ErrEmpty
	}
	return rows, nil
}

func sharesToLots(v float64) float64 {
	return v / 100
}
