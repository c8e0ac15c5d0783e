package tencent

import (
	"context"
	"strings"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// Positions in the "~"-separated quote string
const (
	fieldCode      = 2
	fieldPETTM     = 39
	fieldPB        = 46
	fieldPEDynamic = 52
)

// Fundamentals reads P/E and P/B from the real-time quote string.
// ROE and growth are not carried by this upstream and stay undefined.
func (c *Client) Fundamentals(ctx context.Context, sym market.Symbol) (market.FundamentalRecord, error) {
	body, err := c.fetch(ctx, c.quoteURL, "/q="+sym.Prefixed(), nil)
	if err != nil {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, err)
	}

	fields, err := parseQuote(provider.DecodeGBK(body))
	if err != nil {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, err)
	}
	if len(fields) <= fieldPB || fields[fieldCode] != sym.Code {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, provider.ErrSchema)
	}

	pe := market.Undefined
	if len(fields) > fieldPEDynamic {
		pe = market.ParseNum(fields[fieldPEDynamic])
	}
	if !pe.Valid {
		pe = market.ParseNum(fields[fieldPETTM])
	}

	rec := market.FundamentalRecord{
		Code:       sym.Code,
		PE:         pe,
		PB:         market.ParseNum(fields[fieldPB]),
		Source:     Name,
		Provenance: market.Provenance(Name),
	}
	if rec.Empty() {
		return market.FundamentalRecord{}, provider.Fail(Name, provider.OpFundamentals, provider.ErrEmpty)
	}
	return rec, nil
}

// parseQuote splits v_sh600519="1~贵州茅台~600519~...";
func parseQuote(text string) ([]string, error) {
	open := strings.IndexByte(text, '"')
	if open < 0 {
		return nil, provider.ErrSchema
	}
	rest := text[open+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return nil, provider.ErrSchema
	}
	payload := rest[:end]
	if payload == "" {
		return nil, provider.ErrEmpty
	}
	return strings.Split(payload, "~"), nil
}
