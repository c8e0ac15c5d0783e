package eastmoney

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// klineFields requests date,open,close,high,low,volume,turnover,amplitude,pct,change,turnover-rate
const klineFields = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"

// parseKlines decodes data.klines CSV strings.
// Percent-unit columns are converted to fractions.
func parseKlines(doc gjson.Result) ([]market.QuoteHistoryRow, error) {
	klines := doc.Get("data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, provider.ErrEmpty
	}

	arr := klines.Array()
	rows := make([]market.QuoteHistoryRow, 0, len(arr))
	for _, v := range arr {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 6 {
			continue
		}
		row := market.QuoteHistoryRow{
			Date:   parts[0],
			Open:   market.ParseNum(parts[1]),
			Close:  market.ParseNum(parts[2]),
			High:   market.ParseNum(parts[3]),
			Low:    market.ParseNum(parts[4]),
			Volume: market.ParseNum(parts[5]),
		}
		if len(parts) >= 11 {
			row.Turnover = market.ParseNum(parts[6])
			row.Amplitude = provider.Fraction(market.ParseNum(parts[7]))
			row.PctChange = provider.Fraction(market.ParseNum(parts[8]))
			row.TurnoverRate = provider.Fraction(market.ParseNum(parts[10]))
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, provider.ErrEmpty
	}
	return rows, nil
}
