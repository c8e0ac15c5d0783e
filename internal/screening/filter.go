package screening

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Plausibility bounds. Values outside are treated as bad data, not as filter misses.
const (
	MaxPlausiblePE = 2000.0
	MaxPlausiblePB = 100.0
)

// DefaultMaxStocks caps the universe when neither the filter nor the engine sets one
const DefaultMaxStocks = 200

// Filter is the screening parameter tuple.
// A P/E or P/B range with min == max == 0 means no constraint on that ratio.
// ROE and growth thresholds are in percent units.
type Filter struct {
	PEMin     float64 `yaml:"pe_min" json:"pe_min"`
	PEMax     float64 `yaml:"pe_max" json:"pe_max"`
	PBMin     float64 `yaml:"pb_min" json:"pb_min"`
	PBMax     float64 `yaml:"pb_max" json:"pb_max"`
	ROEMin    float64 `yaml:"roe_min" json:"roe_min"`
	GrowthMin float64 `yaml:"growth_min" json:"growth_min"`
	MaxStocks int     `yaml:"max_stocks" json:"max_stocks"`
}

// Validate rejects inverted ranges and a negative cap
func (f Filter) Validate() error {
	if f.PEMin > f.PEMax {
		return fmt.Errorf("pe_min (%g) greater than pe_max (%g)", f.PEMin, f.PEMax)
	}
	if f.PBMin > f.PBMax {
		return fmt.Errorf("pb_min (%g) greater than pb_max (%g)", f.PBMin, f.PBMax)
	}
	if f.MaxStocks < 0 {
		return fmt.Errorf("max_stocks must not be negative")
	}
	return nil
}

// Key is the canonical form of the full tuple, name=value pairs in name order.
// Two filters share a cached result iff their keys are equal.
func (f Filter) Key() string {
	pairs := map[string]string{
		"pe_min":     formatFloat(f.PEMin),
		"pe_max":     formatFloat(f.PEMax),
		"pb_min":     formatFloat(f.PBMin),
		"pb_max":     formatFloat(f.PBMax),
		"roe_min":    formatFloat(f.ROEMin),
		"growth_min": formatFloat(f.GrowthMin),
		"max_stocks": strconv.Itoa(f.MaxStocks),
	}

	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+pairs[name])
	}
	return strings.Join(parts, "_")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// inRange treats a 0..0 range as unconstrained
func inRange(v, lo, hi float64) bool {
	if lo == 0 && hi == 0 {
		return true
	}
	return v >= lo && v <= hi
}

// implausible reports values that point at broken upstream data
func implausible(pe, pb float64) bool {
	return pe < 0 || pb < 0 || pe > MaxPlausiblePE || pb > MaxPlausiblePB
}
