package eastmoney

import (
	"context"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// Quote fields with fltt=2 (decimal, percent units):
// f162 dynamic P/E, f167 P/B, f173 ROE, f184 revenue growth, f185 net profit growth
const fundamentalFields = "f57,f162,f167,f173,f184,f185"

// Fundamentals fetches the five screening ratios from the quote service
func (c *Client) Fundamentals(ctx context.Context, sym market.Symbol) (market.FundamentalRecord, error) {
	params := url.Values{}
	params.Set("secid", sym.SecID())
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fields", fundamentalFields)

	doc, err := c.fetchJSON(ctx, c.baseURL, "/api/qt/stock/get", params)
	if err != nil {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, err)
	}

	data := doc.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, provider.ErrEmpty)
	}

	rec := market.FundamentalRecord{
		Code:            sym.Code,
		PE:              market.ParseNum(data.Get("f162").String()),
		PB:              market.ParseNum(data.Get("f167").String()),
		ROE:             market.ParseNum(data.Get("f173").String()),
		RevenueGrowth:   market.ParseNum(data.Get("f184").String()),
		NetProfitGrowth: market.ParseNum(data.Get("f185").String()),
		Source:          Name,
		Provenance:      market.Provenance(Name),
	}
	if rec.Empty() {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, provider.ErrEmpty)
	}
	return rec, nil
}
