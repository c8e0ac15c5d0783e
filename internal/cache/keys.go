package cache

import "fmt"

// Cache keys
const (
	KeyBoards   = "board_snapshot"
	KeyUniverse = "stock_universe"
)

// HistoryKey identifies one symbol's date range
func HistoryKey(code, start, end string) string {
	return fmt.Sprintf("history_%s_%s_%s", code, start, end)
}

// FundamentalKey identifies one symbol's ratio record
func FundamentalKey(code string) string {
	return "fundamental_" + code
}

// ScreenKey identifies a screening result by its canonical filter string
func ScreenKey(filter string) string {
	return "screen_" + filter
}
