package provider

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/internal/market"
)

// Column-name variants observed across upstream vocabularies
var (
	CodeColumns = []string{"f12", "code", "symbol", "SECURITY_CODE", "代码", "证券代码", "股票代码", "板块代码"}
	NameColumns = []string{"f14", "name", "SECURITY_NAME_ABBR", "名称", "简称", "证券简称", "股票简称", "板块名称"}
)

// ResolveColumns finds the code and name columns in a header row.
// When either is missing, the first two columns are assumed and degraded is true.
func ResolveColumns(header []string) (codeIdx, nameIdx int, degraded bool) {
	codeIdx, nameIdx = -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if codeIdx < 0 && matches(h, CodeColumns) {
			codeIdx = i
			continue
		}
		if nameIdx < 0 && matches(h, NameColumns) {
			nameIdx = i
		}
	}
	if codeIdx >= 0 && nameIdx >= 0 {
		return codeIdx, nameIdx, false
	}
	return 0, 1, true
}

// CodeName extracts code and name from a JSON object row.
// Unknown vocabularies fall back to the object's first two values.
func CodeName(row gjson.Result) (code, name string, degraded bool) {
	code, okCode := pick(row, CodeColumns)
	name, okName := pick(row, NameColumns)
	if okCode && okName {
		return code, name, false
	}

	var values []string
	row.ForEach(func(_, v gjson.Result) bool {
		values = append(values, strings.TrimSpace(v.String()))
		return len(values) < 2
	})
	if len(values) < 2 {
		return "", "", true
	}
	return values[0], values[1], true
}

func pick(row gjson.Result, candidates []string) (string, bool) {
	for _, c := range candidates {
		v := row.Get(gjson.Escape(c))
		if v.Exists() {
			return strings.TrimSpace(v.String()), true
		}
	}
	return "", false
}

func matches(h string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(h, c) {
			return true
		}
	}
	return false
}

// Fraction converts a percent-unit value (2.34) to a fraction (0.0234)
func Fraction(n market.Num) market.Num {
	return n.Map(func(v float64) float64 { return v / 100 })
}
