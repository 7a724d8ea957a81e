package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marginsim",
	Short: "A margin-aware crypto backtesting harness",
	Long: `Marginsim replays historical candle data through a margin-aware
portfolio ledger and an exchangeable decision oracle.

It provides tools for:
  - Backtesting long/short strategies on leveraged accounts
  - Downloading historical klines from Binance
  - Journaling trades and portfolio valuations (SQLite or CSV)
  - Sharpe, Sortino, and max-drawdown reporting`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
