package market

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Num is a float that may be undefined.
// Undefined is distinct from zero: it marks an unparseable upstream value
// or an indicator whose lookback window is not yet filled.
// JSON form is a number or null.
type Num struct {
	Value float64
	Valid bool
}

// Undefined is the explicit "unknown" marker
var Undefined = Num{}

// Some wraps a defined value
func Some(v float64) Num {
	return Num{Value: v, Valid: true}
}

// NumOf converts a float, mapping NaN to Undefined.
// +Inf and -Inf are also undefined; no table column can hold them.
func NumOf(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Some(v)
}

// Float returns the value, NaN when undefined
func (n Num) Float() float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Value
}

// Or returns the value or fallback when undefined
func (n Num) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

// Map applies fn to a defined value and keeps undefined as is
func (n Num) Map(fn func(float64) float64) Num {
	if !n.Valid {
		return Undefined
	}
	return NumOf(fn(n.Value))
}

func (n Num) String() string {
	if !n.Valid {
		return "-"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Num) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = NumOf(v)
	return nil
}

// ParseNum coerces an upstream cell into a Num.
// Thousands separators and a trailing percent sign are accepted; placeholders
// such as "-", "--", "", "None" and "nan" become Undefined, never zero.
func ParseNum(s string) Num {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	switch strings.ToLower(s) {
	case "", "-", "--", "---", "none", "null", "nan", "n/a":
		return Undefined
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Undefined
	}
	return NumOf(v)
}
