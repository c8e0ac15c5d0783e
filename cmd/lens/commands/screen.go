package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/marketlens/internal/screening"
)

var (
	screenPreset string
	screenFilter screening.Filter
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "펀더멘털 스크리닝",
	Long: `Screen the stock universe by P/E, P/B, ROE and revenue growth.

A preset supplies the base thresholds; explicit flags override it.
A P/E or P/B range of 0..0 means no constraint. Results are cached
for an hour per parameter tuple. The run stops early, keeping the
matches found so far, after more than SCREEN_ERROR_BUDGET failed lookups.

Examples:
  go run ./cmd/lens screen --preset value
  go run ./cmd/lens screen --pe-max 20 --pb-max 3 --roe-min 12 --max-stocks 100`,
	Args: cobra.NoArgs,
	RunE: runScreen,
}

var screenRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "최근 스크리닝 기록",
	Args:  cobra.NoArgs,
	RunE:  runScreenRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(screenCmd)
	screenCmd.AddCommand(screenRunsCmd)

	f := screenCmd.Flags()
	f.StringVar(&screenPreset, "preset", "", "named preset (see --list-presets)")
	f.Float64Var(&screenFilter.PEMin, "pe-min", 0, "minimum P/E")
	f.Float64Var(&screenFilter.PEMax, "pe-max", 0, "maximum P/E")
	f.Float64Var(&screenFilter.PBMin, "pb-min", 0, "minimum P/B")
	f.Float64Var(&screenFilter.PBMax, "pb-max", 0, "maximum P/B")
	f.Float64Var(&screenFilter.ROEMin, "roe-min", 0, "minimum ROE in percent")
	f.Float64Var(&screenFilter.GrowthMin, "growth-min", 0, "minimum revenue growth in percent")
	f.IntVar(&screenFilter.MaxStocks, "max-stocks", 0, "universe cap (default SCREEN_MAX_STOCKS)")
	f.Bool("list-presets", false, "print presets and exit")

	screenRunsCmd.Flags().IntVar(&runsLimit, "limit", 10, "runs to show")
}

func runScreen(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if list, _ := cmd.Flags().GetBool("list-presets"); list {
		return printPresets(a.presets)
	}

	f, err := resolveFilter(cmd, a.presets)
	if err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Fprintf(out, "Screening with %s\n", f.Key())
		a.engine.OnProgress(func(p screening.Progress) {
			if p.Done {
				return
			}
			fmt.Fprintf(out, "[screen] %d/%d processed, %d matched, %d errors\n", p.Processed, p.Total, p.Matched, p.Errors)
		})
	}

	res, err := a.engine.Run(cmd.Context(), f)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	printSeparator()
	st := res.Stats
	fmt.Fprintf(out, "run %s: %d/%d processed, %d accepted, %d rejected, %d skipped, %d implausible, %d errors\n",
		res.RunID, st.Processed, st.Total, st.Accepted, st.Rejected, st.Skipped, st.Implausible, st.Errors)
	if res.FromCache {
		fmt.Fprintln(out, "served from cache")
	}
	if res.Truncated {
		printWarning(fmt.Sprintf("universe truncated to %d stocks", st.Total))
	}
	if res.Aborted {
		printWarning("too many failed lookups, results are partial")
	}

	t := newTable("CODE", "NAME", "PE", "PB", "ROE%", "REV GROWTH%", "PROFIT GROWTH%")
	for _, m := range res.Matches {
		t.row(m.Code, m.Name, fmt.Sprintf("%.2f", m.PE), fmt.Sprintf("%.2f", m.PB), fmt.Sprintf("%.2f", m.ROE),
			fmt.Sprintf("%.2f", m.RevenueGrowth), fmt.Sprintf("%.2f", m.NetProfitGrowth))
	}
	t.flush()
	return nil
}

// resolveFilter starts from the preset and applies explicitly set flags
func resolveFilter(cmd *cobra.Command, presets screening.Presets) (screening.Filter, error) {
	var f screening.Filter
	if screenPreset != "" {
		p, err := presets.Get(screenPreset)
		if err != nil {
			return screening.Filter{}, err
		}
		f = p
	}

	flags := cmd.Flags()
	override := func(name string, dst *float64, v float64) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("pe-min", &f.PEMin, screenFilter.PEMin)
	override("pe-max", &f.PEMax, screenFilter.PEMax)
	override("pb-min", &f.PBMin, screenFilter.PBMin)
	override("pb-max", &f.PBMax, screenFilter.PBMax)
	override("roe-min", &f.ROEMin, screenFilter.ROEMin)
	override("growth-min", &f.GrowthMin, screenFilter.GrowthMin)
	if flags.Changed("max-stocks") {
		f.MaxStocks = screenFilter.MaxStocks
	}
	return f, f.Validate()
}

func printPresets(p screening.Presets) error {
	if jsonOutput {
		return printJSON(p)
	}
	t := newTable("PRESET", "PE", "PB", "ROE≥", "GROWTH≥", "MAX")
	for _, name := range p.Names() {
		f := p[name]
		t.row(name, fmt.Sprintf("%g-%g", f.PEMin, f.PEMax), fmt.Sprintf("%g-%g", f.PBMin, f.PBMax),
			fmt.Sprintf("%g", f.ROEMin), fmt.Sprintf("%g", f.GrowthMin), fmt.Sprintf("%d", f.MaxStocks))
	}
	t.flush()
	return nil
}

func runScreenRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.recorder.Recent(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no recorded runs (set SQLITE_PATH or DATABASE_URL)")
		return nil
	}

	t := newTable("RUN", "STARTED", "PROCESSED", "MATCHED", "ERRORS", "ABORTED")
	for _, r := range runs {
		t.row(r.RunID, r.StartedAt.Format("2006-01-02 15:04"), fmt.Sprintf("%d/%d", r.Stats.Processed, r.Stats.Total),
			fmt.Sprintf("%d", len(r.Matches)), fmt.Sprintf("%d", r.Stats.Errors), fmt.Sprintf("%t", r.Aborted))
	}
	t.flush()
	return nil
}
