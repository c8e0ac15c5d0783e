package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/marketlens/internal/market"
)

var listing = []market.StockInfo{
	{Code: "600519", Name: "贵州茅台"},
	{Code: "000858", Name: "五粮液"},
	{Code: "601318", Name: "中国平安"},
	{Code: "000001", Name: "平安银行"},
	{Code: "300750", Name: "宁德时代"},
	{Code: "002594", Name: "比亚迪"},
	{Code: "600518", Name: "*ST康美"},
	{Code: "600519", Name: "duplicate"},
}

func codes(stocks []market.StockInfo) []string {
	out := make([]string, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, s.Code)
	}
	return out
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"贵州茅台", "gzmt"},
		{"五粮液", "wly"},
		{"比亚迪", "byd"},
		{"*ST康美", "stkm"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Initials(tt.name))
		})
	}
}

func TestSearch(t *testing.T) {
	ix := NewIndex(listing)
	assert.Equal(t, 7, ix.Len(), "duplicate codes dropped")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"exact code", "600519", []string{"600519"}},
		{"code with suffix", "600519.SH", []string{"600519"}},
		{"code with prefix", "sh600519", []string{"600519"}},
		{"code prefix sorted", "6005", []string{"600518", "600519"}},
		{"pinyin initials", "gzmt", []string{"600519"}},
		{"pinyin prefix", "GZ", []string{"600519"}},
		{"latin in name", "st", []string{"600518"}},
		{"name substring", "茅台", []string{"600519"}},
		{"name substring sorted by code", "平安", []string{"000001", "601318"}},
		{"exact name", "比亚迪", []string{"002594"}},
		{"code substring", "8585", nil},
		{"code infix", "0858", []string{"000858"}},
		{"blank", "  ", nil},
		{"no match", "xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := codes(ix.Search(tt.query, 0))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_RanksCodeAboveName(t *testing.T) {
	ix := NewIndex([]market.StockInfo{
		{Code: "000002", Name: "万科A"},
		{Code: "600002", Name: "测试000002"},
	})
	assert.Equal(t, []string{"000002", "600002"}, codes(ix.Search("000002", 0)))
}

func TestSearch_Limit(t *testing.T) {
	ix := NewIndex(listing)
	assert.Len(t, ix.Search("6", 2), 2)
	assert.Len(t, ix.Search("6", 0), 3)
}

func TestLookup(t *testing.T) {
	ix := NewIndex(listing)

	got, ok := ix.Lookup("600519.SH")
	assert.True(t, ok)
	assert.Equal(t, "贵州茅台", got.Name)

	_, ok = ix.Lookup("600000")
	assert.False(t, ok)

	_, ok = ix.Lookup("garbage")
	assert.False(t, ok)
}
