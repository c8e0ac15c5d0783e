package eastmoney

import (
	"context"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// aShares selects Shanghai main/STAR, Shenzhen main/ChiNext and Beijing listings
const aShares = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"

// Universe lists all A-shares
func (c *Client) Universe(ctx context.Context) (provider.Table[market.StockInfo], error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "6000")
	params.Set("po", "1")
	params.Set("np", "1")
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fid", "f12")
	params.Set("fs", aShares)
	params.Set("fields", "f12,f14")

	doc, err := c.fetchJSON(ctx, c.baseURL, "/api/qt/clist/get", params)
	if err != nil {
		return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, err)
	}

	stocks, degraded, err := parseListing(doc)
	if err != nil {
		return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, err)
	}
	return provider.Table[market.StockInfo]{Rows: stocks, Degraded: degraded}, nil
}

// parseListing reads data.diff as code/name pairs.
// diff is an array with np=1 and an index-keyed object otherwise.
func parseListing(doc gjson.Result) ([]market.StockInfo, bool, error) {
	diff := doc.Get("data.diff")
	if !diff.Exists() {
		return nil, false, provider.ErrEmpty
	}
	if !diff.IsArray() && !diff.IsObject() {
		return nil, false, provider.ErrSchema
	}

	var (
		out      []market.StockInfo
		degraded bool
	)
	diff.ForEach(func(_, row gjson.Result) bool {
		code, name, d := provider.CodeName(row)
		if d {
			degraded = true
		}
		if code == "" || code == "-" {
			return true
		}
		out = append(out, market.StockInfo{Code: code, Name: name})
		return true
	})

	if len(out) == 0 {
		return nil, degraded, provider.ErrEmpty
	}
	return out, degraded, nil
}
