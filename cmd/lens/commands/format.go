package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/wonny/marketlens/internal/indicator"
	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

var out io.Writer = os.Stdout

// printJSON writes v as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOrigin prints where an answer came from
func printOrigin[T any](res retrieval.Result[T]) {
	line := fmt.Sprintf("source: %s", res.Origin)
	if res.Provider != "" {
		line += " (" + res.Provider + ")"
	}
	if res.Degraded {
		line += " [columns assumed positionally]"
	}
	fmt.Fprintln(out, line)
	switch res.Origin {
	case retrieval.OriginStale:
		printWarning("every provider failed, showing the last cached data")
	case retrieval.OriginDefault:
		printWarning("every provider failed and nothing was cached, showing defaults")
	}
}

// printWarning prints a warning message
func printWarning(message string) {
	fmt.Fprintf(out, "⚠️  %s\n", message)
}

// printReferenceLines prints the RSI/WR21 guide levels under an indicator table
func printReferenceLines(ref indicator.ReferenceLines) {
	fmt.Fprintf(out, "reference: RSI %g/%g  WR21 %g/%g (overbought/oversold)\n",
		ref.RSIOverbought, ref.RSIOversold, ref.WROverbought, ref.WROversold)
}

// printSeparator prints a visual separator
func printSeparator() {
	fmt.Fprintln(out, "───────────────────────────────────────────────────────────")
}

// table buffers tab-separated rows and aligns them on flush
type table struct {
	w *tabwriter.Writer
}

func newTable(headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)}
	t.row(headers...)
	return t
}

func (t *table) row(cells ...string) {
	fmt.Fprintln(t.w, strings.Join(cells, "\t")+"\t")
}

func (t *table) flush() {
	t.w.Flush()
}

// num formats a value with two decimals, "-" when undefined
func num(n market.Num) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", n.Value)
}

// pct formats a fraction as a percentage
func pct(n market.Num) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", n.Value*100)
}

// whole formats scaled columns without decimals
func whole(n market.Num) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprintf("%.0f", n.Value)
}
