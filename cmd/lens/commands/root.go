package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lens",
	Short: "marketlens - A-share market data pipeline",
	Long: `marketlens CLI

Board snapshots, daily history with indicators, fundamentals and
fundamental screening for China A-shares. Every request is answered
from the cache or from an ordered chain of public providers
(EastMoney, Tencent, Sina) with stale-cache and default fallbacks.

Usage:
  go run ./cmd/lens [command]

Examples:
  go run ./cmd/lens boards --days 3
  go run ./cmd/lens history 600519 --start 20240101 --end 20240331
  go run ./cmd/lens indicators 600519.SH
  go run ./cmd/lens fundamentals 000858
  go run ./cmd/lens screen --preset value --max-stocks 100
  go run ./cmd/lens universe search gzmt
  go run ./cmd/lens serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// SIGINT/SIGTERM cancel the command context, which stops a running screening pass.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
