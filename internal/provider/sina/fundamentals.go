package sina

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// Row labels in the financial-guide table; the first value column is the latest period
var (
	roeLabels           = []string{"加权净资产收益率(%)", "净资产收益率加权(%)", "净资产收益率(%)"}
	revenueGrowthLabels = []string{"主营业务收入增长率(%)", "营业收入同比增长率(%)"}
	profitGrowthLabels  = []string{"净利润增长率(%)", "净利润同比增长率(%)"}
)

// Fundamentals reads ROE and growth from the financial-guide page.
// P/E and P/B are not on this page and stay undefined.
func (c *Client) Fundamentals(ctx context.Context, sym market.Symbol) (market.FundamentalRecord, error) {
	year := c.now().Year()

	// reports for the current year appear only after the first quarter closes
	var lastErr error
	for _, y := range []int{year, year - 1} {
		rec, err := c.financialGuide(ctx, sym, y)
		if err == nil {
			return rec, nil
		}
		lastErr = err
	}
	return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, lastErr)
}

func (c *Client) financialGuide(ctx context.Context, sym market.Symbol, year int) (market.FundamentalRecord, error) {
	path := fmt.Sprintf("/corp/go.php/vFD_FinancialGuideLine/stockid/%s/ctrl/%d/displaytype/4.phtml", sym.Code, year)

	html, err := c.fetchText(ctx, c.baseURL, path, nil)
	if err != nil {
		return market.FundamentalRecord{}, err
	}

	values, err := parseGuide(html)
	if err != nil {
		return market.FundamentalRecord{}, err
	}

	rec := market.FundamentalRecord{
		Code:            sym.Code,
		ROE:             lookup(values, roeLabels),
		RevenueGrowth:   lookup(values, revenueGrowthLabels),
		NetProfitGrowth: lookup(values, profitGrowthLabels),
		Source:          Name,
		Provenance:      market.Provenance(Name),
	}
	if rec.Empty() {
		return market.FundamentalRecord{}, provider.ErrEmpty
	}
	return rec, nil
}

// parseGuide maps each row label to its latest-period cell
func parseGuide(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("#BalanceSheetNewTable0")
	if table.Length() == 0 {
		return nil, provider.ErrSchema
	}

	values := make(map[string]string)
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		if label == "" {
			return
		}
		if _, seen := values[label]; !seen {
			values[label] = strings.TrimSpace(cells.Eq(1).Text())
		}
	})

	if len(values) == 0 {
		return nil, provider.ErrEmpty
	}
	return values, nil
}

func lookup(values map[string]string, labels []string) market.Num {
	for _, l := range labels {
		if v, ok := values[l]; ok {
			return market.ParseNum(v)
		}
	}
	return market.Undefined
}
