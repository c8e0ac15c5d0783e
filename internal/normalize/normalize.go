// Package normalize cleans adapter tables into their canonical form.
// Every function returns a new slice and leaves its input untouched.
package normalize

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/marketlens/internal/market"
)

// Unit scales for derived board columns
const (
	hundredMillion = 1e8
	tenThousand    = 1e4
)

// Lookback window bounds for board tables, in days
const (
	MinDays     = 1
	MaxDays     = 30
	DefaultDays = 7
)

// roundWhole matches pandas round(0): half to even
func roundWhole(v float64) float64 {
	return math.RoundToEven(v)
}

// roundPercent rounds a fraction to a whole percentage point and rescales it
func roundPercent(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// Boards computes derived columns and applies the rounding policy.
// Intensity is computed from the unrounded change and turnover rate; the
// rounding then collapses sub-percent differences. Rows without a percent
// change are dropped. Rows already normalized pass through unchanged, so
// applying Boards twice yields the same table.
func Boards(rows []market.BoardSnapshot) (out []market.BoardSnapshot, dropped int) {
	out = make([]market.BoardSnapshot, 0, len(rows))
	for _, r := range rows {
		if r.Normalized {
			out = append(out, r)
			continue
		}
		if !r.PctChange.Valid {
			dropped++
			continue
		}

		intensity := market.Undefined
		if r.TurnoverRate.Valid {
			intensity = market.NumOf(r.PctChange.Value * r.TurnoverRate.Value)
		}

		r.Intensity = intensity.Map(roundPercent)
		r.TurnoverHundredMil = r.Turnover.Map(func(v float64) float64 { return roundWhole(v / hundredMillion) })
		r.VolumeTenThousand = r.Volume.Map(func(v float64) float64 { return roundWhole(v / tenThousand) })
		r.PctChange = r.PctChange.Map(roundPercent)
		r.TurnoverRate = r.TurnoverRate.Map(roundPercent)
		r.Normalized = true

		out = append(out, r)
	}
	return out, dropped
}

// ClampDays bounds a lookback window to [MinDays, MaxDays]; zero means the default
func ClampDays(days int) int {
	switch {
	case days == 0:
		return DefaultDays
	case days < MinDays:
		return MinDays
	case days > MaxDays:
		return MaxDays
	default:
		return days
	}
}

// WithinDays keeps board rows dated on or after now minus days
func WithinDays(rows []market.BoardSnapshot, days int, now time.Time) []market.BoardSnapshot {
	cutoff := now.AddDate(0, 0, -ClampDays(days)).Format(market.DateLayout)

	out := make([]market.BoardSnapshot, 0, len(rows))
	for _, r := range rows {
		if r.Date >= cutoff {
			out = append(out, r)
		}
	}
	return out
}

// isTradingDay reports whether a bar reflects real trading.
// The volume guard covers zero-volume placeholders; the flat-bar guard
// catches suspended days that some upstreams report with a token volume.
func isTradingDay(r market.QuoteHistoryRow) bool {
	if !r.Volume.Valid || r.Volume.Value <= 0 {
		return false
	}
	flat := r.Open.Valid && r.Close.Valid && r.High.Valid && r.Low.Valid &&
		r.Open.Value == r.Close.Value && r.Close.Value == r.High.Value && r.High.Value == r.Low.Value
	return !(flat && r.Volume.Value < 1)
}

// History drops non-trading artifacts and sorts ascending by date.
// A repeated date keeps the later row.
func History(rows []market.QuoteHistoryRow) (out []market.QuoteHistoryRow, dropped int) {
	byDate := make(map[string]int, len(rows))
	out = make([]market.QuoteHistoryRow, 0, len(rows))

	for _, r := range rows {
		if r.Date == "" || !isTradingDay(r) {
			dropped++
			continue
		}
		if i, ok := byDate[r.Date]; ok {
			out[i] = r
			dropped++
			continue
		}
		byDate[r.Date] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, dropped
}

// Descending returns a copy ordered newest first, for presentation
func Descending[R any](rows []R, date func(R) string) []R {
	out := make([]R, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return date(out[i]) > date(out[j]) })
	return out
}
