// Package universe searches the stock listing by code, name or pinyin initials.
package universe

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"

	"github.com/wonny/marketlens/internal/market"
)

// match ranks; lower is better
const (
	rankExactCode = iota
	rankCodePrefix
	rankExactName
	rankInitialsPrefix
	rankNameContains
	rankCodeContains
)

type entry struct {
	info     market.StockInfo
	name     string
	initials string
}

// Index is an immutable search index over a listing
type Index struct {
	entries []entry
	byCode  map[string]int
}

var initialsArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.FirstLetter
	// keep latin letters and digits ("ST", "A") so "*ST康美" searches as "stkm"
	a.Fallback = func(r rune, _ pinyin.Args) []string {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return []string{strings.ToLower(string(r))}
		}
		return nil
	}
	return a
}()

// Initials returns the lower-case pinyin initials of name, e.g. 贵州茅台 → gzmt
func Initials(name string) string {
	return strings.Join(pinyin.LazyPinyin(name, initialsArgs), "")
}

// NewIndex builds an index; duplicate codes keep the first entry
func NewIndex(stocks []market.StockInfo) *Index {
	ix := &Index{
		entries: make([]entry, 0, len(stocks)),
		byCode:  make(map[string]int, len(stocks)),
	}
	for _, s := range stocks {
		if _, dup := ix.byCode[s.Code]; dup {
			continue
		}
		ix.byCode[s.Code] = len(ix.entries)
		ix.entries = append(ix.entries, entry{
			info:     s,
			name:     strings.ToLower(s.Name),
			initials: Initials(s.Name),
		})
	}
	return ix
}

// Len returns the number of listed stocks
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Lookup resolves a code in any accepted form ("600519", "600519.SH", "sh600519")
func (ix *Index) Lookup(code string) (market.StockInfo, bool) {
	sym, err := market.ParseSymbol(code)
	if err != nil {
		return market.StockInfo{}, false
	}
	i, ok := ix.byCode[sym.Code]
	if !ok {
		return market.StockInfo{}, false
	}
	return ix.entries[i].info, true
}

// Search returns up to limit stocks matching query, best matches first.
// limit <= 0 means no limit.
func (ix *Index) Search(query string, limit int) []market.StockInfo {
	q := normalizeQuery(query)
	if q == "" {
		return []market.StockInfo{}
	}

	type hit struct {
		pos  int
		rank int
	}
	var hits []hit
	for i, e := range ix.entries {
		if r, ok := rankOf(e, q); ok {
			hits = append(hits, hit{pos: i, rank: r})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].rank != hits[b].rank {
			return hits[a].rank < hits[b].rank
		}
		return ix.entries[hits[a].pos].info.Code < ix.entries[hits[b].pos].info.Code
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]market.StockInfo, 0, len(hits))
	for _, h := range hits {
		out = append(out, ix.entries[h.pos].info)
	}
	return out
}

func rankOf(e entry, q string) (int, bool) {
	code := e.info.Code
	switch {
	case code == q:
		return rankExactCode, true
	case strings.HasPrefix(code, q):
		return rankCodePrefix, true
	case e.name == q:
		return rankExactName, true
	case e.initials != "" && strings.HasPrefix(e.initials, q):
		return rankInitialsPrefix, true
	case strings.Contains(e.name, q):
		return rankNameContains, true
	case strings.Contains(code, q):
		return rankCodeContains, true
	}
	return 0, false
}

// normalizeQuery strips exchange markers from code-like queries
func normalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if sym, err := market.ParseSymbol(q); err == nil {
		return sym.Code
	}
	return q
}
