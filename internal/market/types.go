package market

import "time"

// DateLayout is the canonical trading-date form in tables
const DateLayout = "2006-01-02"

// RangeLayout is the request form for date ranges
const RangeLayout = "20060102"

// ChinaTime is the exchange calendar zone (UTC+8, no DST)
var ChinaTime = time.FixedZone("CST", 8*60*60)

// BoardSnapshot is one sector/industry board on one trading date.
// PctChange and TurnoverRate are fractions (0.0234 = 2.34%).
type BoardSnapshot struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	Open         Num    `json:"open"`
	Close        Num    `json:"close"`
	High         Num    `json:"high"`
	Low          Num    `json:"low"`
	Volume       Num    `json:"volume"`
	Turnover     Num    `json:"turnover"`
	Amplitude    Num    `json:"amplitude"`
	PctChange    Num    `json:"pct_change"`
	TurnoverRate Num    `json:"turnover_rate"`

	// Derived, filled by normalization
	Intensity          Num  `json:"price_volume_intensity"`
	TurnoverHundredMil Num  `json:"turnover_100m"`
	VolumeTenThousand  Num  `json:"volume_10k_lots"`
	Normalized         bool `json:"normalized"`
}

// QuoteHistoryRow is one (symbol, trading date) bar
type QuoteHistoryRow struct {
	Date         string `json:"date"`
	Open         Num    `json:"open"`
	Close        Num    `json:"close"`
	High         Num    `json:"high"`
	Low          Num    `json:"low"`
	Volume       Num    `json:"volume"`
	Turnover     Num    `json:"turnover"`
	Amplitude    Num    `json:"amplitude"`
	PctChange    Num    `json:"pct_change"`
	TurnoverRate Num    `json:"turnover_rate"`
}

// IndicatorRow is a history bar with technical indicators attached.
// Indicators inside their lookback window are Undefined.
type IndicatorRow struct {
	QuoteHistoryRow

	MA5   Num `json:"ma5"`
	MA10  Num `json:"ma10"`
	MA20  Num `json:"ma20"`
	EMA12 Num `json:"ema12"`
	EMA26 Num `json:"ema26"`
	DIF   Num `json:"dif"`
	DEA   Num `json:"dea"`
	MACD  Num `json:"macd"`
	RSV   Num `json:"rsv"`
	K     Num `json:"k"`
	D     Num `json:"d"`
	J     Num `json:"j"`
	RSI   Num `json:"rsi"`
	WR21  Num `json:"wr21"`

	// Up is true when close >= open; volume bars are coloured by it
	Up bool `json:"up"`
}

// Provenance records where a value came from
type Provenance string

const (
	ProvenanceUnknown Provenance = ""
	ProvenanceDefault Provenance = "default"
	ProvenanceCache   Provenance = "cache"
)

// FundamentalRecord holds screening ratios for one symbol.
// Percent-valued fields (ROE, growth) stay in percent units as reported.
type FundamentalRecord struct {
	Code            string     `json:"code"`
	PE              Num        `json:"pe_dynamic"`
	PB              Num        `json:"pb"`
	ROE             Num        `json:"roe_pct"`
	RevenueGrowth   Num        `json:"revenue_growth_pct"`
	NetProfitGrowth Num        `json:"net_profit_growth_pct"`
	Source          string     `json:"source"`
	Provenance      Provenance `json:"provenance"`
	DefaultedFields []string   `json:"defaulted_fields,omitempty"`
}

// Complete reports whether all five ratios are present
func (f FundamentalRecord) Complete() bool {
	return f.PE.Valid && f.PB.Valid && f.ROE.Valid && f.RevenueGrowth.Valid && f.NetProfitGrowth.Valid
}

// Empty reports whether no ratio is present at all
func (f FundamentalRecord) Empty() bool {
	return !f.PE.Valid && !f.PB.Valid && !f.ROE.Valid && !f.RevenueGrowth.Valid && !f.NetProfitGrowth.Valid
}

// Defaulted reports whether the record is the static fallback
func (f FundamentalRecord) Defaulted() bool {
	return f.Provenance == ProvenanceDefault
}

// Fallback ratios used only when every provider is exhausted
const (
	DefaultPE     = 20.0
	DefaultPB     = 2.0
	DefaultROE    = 10.0
	DefaultGrowth = 5.0
)

// DefaultFundamentals returns the static fallback record for code
func DefaultFundamentals(code string) FundamentalRecord {
	return FundamentalRecord{
		Code:            code,
		PE:              Some(DefaultPE),
		PB:              Some(DefaultPB),
		ROE:             Some(DefaultROE),
		RevenueGrowth:   Some(DefaultGrowth),
		NetProfitGrowth: Some(DefaultGrowth),
		Source:          "static",
		Provenance:      ProvenanceDefault,
		DefaultedFields: []string{"pe_dynamic", "pb", "roe_pct", "revenue_growth_pct", "net_profit_growth_pct"},
	}
}

// StockInfo is one entry of the listing universe
type StockInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ScreeningMatch is one accepted symbol
type ScreeningMatch struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	PE              float64 `json:"pe"`
	PB              float64 `json:"pb"`
	ROE             float64 `json:"roe_pct"`
	RevenueGrowth   float64 `json:"revenue_growth_pct"`
	NetProfitGrowth float64 `json:"net_profit_growth_pct"`
}

// ScreeningStats aggregates per-symbol outcomes of one pass
type ScreeningStats struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Accepted    int `json:"accepted"`
	Rejected    int `json:"rejected"`
	Skipped     int `json:"skipped"`
	Implausible int `json:"implausible"`
	Errors      int `json:"errors"`
}

// ScreeningResult is the outcome of one screening invocation
type ScreeningResult struct {
	RunID     string           `json:"run_id"`
	Key       string           `json:"key"`
	Matches   []ScreeningMatch `json:"matches"`
	Stats     ScreeningStats   `json:"stats"`
	Truncated bool             `json:"truncated"`
	Aborted   bool             `json:"aborted"`
	FromCache bool             `json:"from_cache"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}
