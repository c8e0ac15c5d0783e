// Package indicator derives technical indicators from daily bars.
//
// Compute is pure: it never mutates its input and keeps no state between
// calls. Values follow the pandas definitions the dashboard was built on,
// so MA windows, span-based EMAs and the KDJ/RSI smoothing match
// numerically.
package indicator

import (
	"math"
	"sort"

	"github.com/wonny/marketlens/internal/market"
)

// Lookback windows and smoothing parameters
const (
	MA5Window  = 5
	MA10Window = 10
	MA20Window = 20

	FastSpan   = 12
	SlowSpan   = 26
	SignalSpan = 9

	KDJWindow = 9
	KDJAlpha  = 1.0 / 3

	RSICom = 13

	WRWindow = 21
)

// Reference lines for oscillators. WR21 here is the absolute-valued
// max/min variant in [0, 100]; low readings are overbought.
const (
	RSIOverbought = 80.0
	RSIOversold   = 20.0
	WROverbought  = 20.0
	WROversold    = 80.0
)

// ReferenceLines are the guide lines drawn alongside the RSI and WR21 panels
type ReferenceLines struct {
	RSIOverbought float64 `json:"rsi_overbought"`
	RSIOversold   float64 `json:"rsi_oversold"`
	WROverbought  float64 `json:"wr_overbought"`
	WROversold    float64 `json:"wr_oversold"`
}

// References returns the oscillator reference lines
func References() ReferenceLines {
	return ReferenceLines{
		RSIOverbought: RSIOverbought,
		RSIOversold:   RSIOversold,
		WROverbought:  WROverbought,
		WROversold:    WROversold,
	}
}

// Compute attaches indicators to bars. Bars are ordered ascending by date
// first if they are not already.
func Compute(rows []market.QuoteHistoryRow) []market.IndicatorRow {
	bars := make([]market.QuoteHistoryRow, len(rows))
	copy(bars, rows)
	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date }) {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close.Float()
		highs[i] = b.High.Float()
		lows[i] = b.Low.Float()
	}

	ma5 := rollingMean(closes, MA5Window)
	ma10 := rollingMean(closes, MA10Window)
	ma20 := rollingMean(closes, MA20Window)

	ema12 := ewm(closes, spanAlpha(FastSpan))
	ema26 := ewm(closes, spanAlpha(SlowSpan))
	dif := sub(ema12, ema26)
	dea := ewm(dif, spanAlpha(SignalSpan))

	rsv := computeRSV(closes, highs, lows)
	k := ewm(rsv, KDJAlpha)
	d := ewm(k, KDJAlpha)

	rsi := computeRSI(closes)
	wr := computeWR(closes, highs, lows)

	out := make([]market.IndicatorRow, n)
	for i, b := range bars {
		macd := 2 * (dif[i] - dea[i])
		j := 3*k[i] - 2*d[i]

		out[i] = market.IndicatorRow{
			QuoteHistoryRow: b,
			MA5:             market.NumOf(ma5[i]),
			MA10:            market.NumOf(ma10[i]),
			MA20:            market.NumOf(ma20[i]),
			EMA12:           market.NumOf(ema12[i]),
			EMA26:           market.NumOf(ema26[i]),
			DIF:             market.NumOf(dif[i]),
			DEA:             market.NumOf(dea[i]),
			MACD:            market.NumOf(macd),
			RSV:             market.NumOf(rsv[i]),
			K:               market.NumOf(k[i]),
			D:               market.NumOf(d[i]),
			J:               market.NumOf(j),
			RSI:             market.NumOf(rsi[i]),
			WR21:            market.NumOf(wr[i]),
			Up:              b.Close.Valid && b.Open.Valid && b.Close.Value >= b.Open.Value,
		}
	}
	return out
}

// computeRSV is the close's position in the 9-bar high/low range, ×100.
// A flat range is undefined.
func computeRSV(closes, highs, lows []float64) []float64 {
	hh := rollingMax(highs, KDJWindow)
	ll := rollingMin(lows, KDJWindow)

	out := make([]float64, len(closes))
	for i := range closes {
		span := hh[i] - ll[i]
		if span == 0 || math.IsNaN(span) {
			out[i] = nan()
			continue
		}
		out[i] = (closes[i] - ll[i]) / span * 100
	}
	return out
}

// computeRSI smooths clipped up and down moves separately (Wilder, com=13).
// No down moves at all, including a flat window, reads as the maximum.
func computeRSI(closes []float64) []float64 {
	delta := diff(closes)
	up := make([]float64, len(delta))
	down := make([]float64, len(delta))
	for i, v := range delta {
		if math.IsNaN(v) {
			up[i], down[i] = v, v
			continue
		}
		up[i] = math.Max(v, 0)
		down[i] = -math.Min(v, 0)
	}

	alpha := comAlpha(RSICom)
	avgUp := ewm(up, alpha)
	avgDown := ewm(down, alpha)

	out := make([]float64, len(closes))
	for i := range closes {
		switch {
		case math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]):
			out[i] = nan()
		case avgDown[i] == 0:
			out[i] = 100
		default:
			rs := avgUp[i] / avgDown[i]
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// computeWR is |-100 × (HH21 − close) / (HH21 − LL21)|. A flat range is undefined.
func computeWR(closes, highs, lows []float64) []float64 {
	hh := rollingMax(highs, WRWindow)
	ll := rollingMin(lows, WRWindow)

	out := make([]float64, len(closes))
	for i := range closes {
		span := hh[i] - ll[i]
		if span == 0 || math.IsNaN(span) {
			out[i] = nan()
			continue
		}
		out[i] = math.Abs(-100 * (hh[i] - closes[i]) / span)
	}
	return out
}
