package market

import (
	"fmt"
	"strings"
)

// Exchange identifies the listing venue of an A-share
type Exchange string

const (
	Shanghai Exchange = "SH"
	Shenzhen Exchange = "SZ"
	Beijing  Exchange = "BJ"
)

// Symbol is a normalized six-digit code plus its exchange
type Symbol struct {
	Code     string   `json:"code"`
	Exchange Exchange `json:"exchange"`
}

// ParseSymbol strips an optional exchange suffix or prefix (".SH", "sz" ...)
// and re-derives the exchange from the leading digit:
// 6 → Shanghai, 0/3 → Shenzhen, 4/8 → Beijing.
func ParseSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	for _, prefix := range []string{"SH", "SZ", "BJ"} {
		s = strings.TrimPrefix(s, prefix)
	}

	if len(s) != 6 {
		return Symbol{}, fmt.Errorf("invalid symbol %q: want 6 digits", raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Symbol{}, fmt.Errorf("invalid symbol %q: non-digit code", raw)
		}
	}

	var ex Exchange
	switch s[0] {
	case '6':
		ex = Shanghai
	case '0', '3':
		ex = Shenzhen
	case '4', '8':
		ex = Beijing
	default:
		return Symbol{}, fmt.Errorf("invalid symbol %q: unknown exchange prefix %c", raw, s[0])
	}

	return Symbol{Code: s, Exchange: ex}, nil
}

// String returns the suffixed form, e.g. 600519.SH
func (s Symbol) String() string {
	return s.Code + "." + string(s.Exchange)
}

// Prefixed returns the lower-case prefixed form used by Tencent and Sina, e.g. sh600519
func (s Symbol) Prefixed() string {
	return strings.ToLower(string(s.Exchange)) + s.Code
}

// SecID returns the EastMoney market-qualified id: 1.600519 for Shanghai, 0.000001 otherwise
func (s Symbol) SecID() string {
	if s.Exchange == Shanghai {
		return "1." + s.Code
	}
	return "0." + s.Code
}
