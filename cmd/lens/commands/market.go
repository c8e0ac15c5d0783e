package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketlens/internal/indicator"
	"github.com/wonny/marketlens/internal/market"
)

var (
	boardDays  int
	rangeStart string
	rangeEnd   string
	tailRows   int
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "업종 보드 스냅샷",
	Long: `Show the sector board snapshot, latest bar per board.

The table is cached for an hour. --days keeps boards whose latest
bar falls inside the lookback window (1-30, default 7).

Example:
  go run ./cmd/lens boards --days 3`,
	Args: cobra.NoArgs,
	RunE: runBoards,
}

var historyCmd = &cobra.Command{
	Use:   "history CODE",
	Short: "일봉 히스토리",
	Long: `Show cleaned, forward-adjusted daily bars.

CODE accepts 600519, 600519.SH or sh600519. Dates are YYYYMMDD;
--end defaults to today and --start to 180 days before --end.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators CODE",
	Short: "기술적 지표 (MA/MACD/KDJ/RSI/WR)",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndicators,
}

var fundamentalsCmd = &cobra.Command{
	Use:   "fundamentals CODE",
	Short: "펀더멘털 (PE/PB/ROE/성장률)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFundamentals,
}

func init() {
	rootCmd.AddCommand(boardsCmd, historyCmd, indicatorsCmd, fundamentalsCmd)

	boardsCmd.Flags().IntVar(&boardDays, "days", 7, "lookback window in days (1-30)")

	for _, cmd := range []*cobra.Command{historyCmd, indicatorsCmd} {
		cmd.Flags().StringVar(&rangeStart, "start", "", "start date YYYYMMDD")
		cmd.Flags().StringVar(&rangeEnd, "end", "", "end date YYYYMMDD (default today)")
		cmd.Flags().IntVar(&tailRows, "tail", 20, "rows to print, newest last (0 = all)")
	}
}

func runBoards(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.coord.BoardsWithin(cmd.Context(), boardDays)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	printOrigin(res)
	t := newTable("CODE", "NAME", "DATE", "CLOSE", "PCT", "TURNOVER%", "INTENSITY", "AMOUNT(1e8)", "VOL(1e4)")
	for _, b := range res.Data {
		t.row(b.Code, b.Name, b.Date, num(b.Close), pct(b.PctChange), pct(b.TurnoverRate),
			num(b.Intensity), whole(b.TurnoverHundredMil), whole(b.VolumeTenThousand))
	}
	t.flush()
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	start, end := defaultRange(a.coord.Now())
	res, err := a.coord.History(cmd.Context(), args[0], start, end)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	printOrigin(res)
	t := newTable("DATE", "OPEN", "HIGH", "LOW", "CLOSE", "PCT", "VOLUME", "TURNOVER%")
	for _, r := range tail(res.Data) {
		t.row(r.Date, num(r.Open), num(r.High), num(r.Low), num(r.Close), pct(r.PctChange), whole(r.Volume), pct(r.TurnoverRate))
	}
	t.flush()
	fmt.Fprintf(out, "%d rows\n", len(res.Data))
	return nil
}

func runIndicators(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	start, end := defaultRange(a.coord.Now())
	res, err := a.coord.Indicators(cmd.Context(), args[0], start, end)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	printOrigin(res)
	t := newTable("DATE", "CLOSE", "MA5", "MA20", "DIF", "DEA", "MACD", "K", "D", "J", "RSI", "WR21")
	for _, r := range tail(res.Data) {
		t.row(r.Date, num(r.Close), num(r.MA5), num(r.MA20), num(r.DIF), num(r.DEA), num(r.MACD),
			num(r.K), num(r.D), num(r.J), num(r.RSI), num(r.WR21))
	}
	t.flush()
	printReferenceLines(indicator.References())
	return nil
}

func runFundamentals(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.coord.Fundamentals(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	printOrigin(res)
	rec := res.Data
	printSeparator()
	fmt.Fprintf(out, "  Code              : %s\n", rec.Code)
	fmt.Fprintf(out, "  P/E (dynamic)     : %s\n", num(rec.PE))
	fmt.Fprintf(out, "  P/B               : %s\n", num(rec.PB))
	fmt.Fprintf(out, "  ROE %%             : %s\n", num(rec.ROE))
	fmt.Fprintf(out, "  Revenue growth %%  : %s\n", num(rec.RevenueGrowth))
	fmt.Fprintf(out, "  Profit growth %%   : %s\n", num(rec.NetProfitGrowth))
	fmt.Fprintf(out, "  Source            : %s\n", rec.Source)
	if rec.Provenance != "" {
		fmt.Fprintf(out, "  Provenance        : %s\n", rec.Provenance)
	}
	printSeparator()
	return nil
}

// defaultRange fills --start/--end the way the API does
func defaultRange(now time.Time) (string, string) {
	end := rangeEnd
	if end == "" {
		end = now.In(market.ChinaTime).Format(market.RangeLayout)
	}
	start := rangeStart
	if start == "" {
		if to, err := time.Parse(market.RangeLayout, end); err == nil {
			start = to.AddDate(0, 0, -180).Format(market.RangeLayout)
		} else {
			start = end
		}
	}
	return start, end
}

func tail[T any](rows []T) []T {
	if tailRows > 0 && len(rows) > tailRows {
		return rows[len(rows)-tailRows:]
	}
	return rows
}
