package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/marketlens/internal/universe"
)

var searchLimit int

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "종목 리스트",
	Args:  cobra.NoArgs,
	RunE:  runUniverse,
}

var universeSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "코드/이름/병음 이니셜로 종목 검색",
	Long: `Find stocks by code (600519, 600519.SH), name (茅台) or
pinyin initials (gzmt).`,
	Args: cobra.ExactArgs(1),
	RunE: runUniverseSearch,
}

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeSearchCmd)
	universeSearchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.coord.Universe(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	printOrigin(res)
	fmt.Fprintf(out, "%d stocks listed\n", len(res.Data))
	return nil
}

func runUniverseSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.coord.Universe(cmd.Context())
	if err != nil {
		return err
	}

	hits := universe.NewIndex(res.Data).Search(args[0], searchLimit)
	if jsonOutput {
		return printJSON(hits)
	}

	t := newTable("CODE", "NAME", "INITIALS")
	for _, s := range hits {
		t.row(s.Code, s.Name, universe.Initials(s.Name))
	}
	t.flush()
	return nil
}
