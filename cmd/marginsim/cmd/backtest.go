package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/binance"
	"github.com/rustyeddy/marginsim/config"
	"github.com/rustyeddy/marginsim/journal"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/oracle"
	"github.com/rustyeddy/marginsim/risk"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the margin ledger",
	Long: `Backtest runs a decision oracle against historical candle data on a
margin-aware account and reports performance metrics.

Candles come from CSV files in the configured data directory (one
<SYMBOL>.csv per symbol, see 'marginsim download') or straight from the
Binance REST API with --live-data.

Example:
  marginsim backtest --config run.yaml
  marginsim backtest --config run.yaml --live-data`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btLiveData   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (required)")
	backtestCmd.Flags().BoolVar(&btLiveData, "live-data", false, "fetch candles from the Binance API instead of local CSV")
	backtestCmd.MarkFlagRequired("config")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return err
	}

	start, end, err := cfg.Window()
	if err != nil {
		return err
	}

	var source backtest.PriceSource
	if btLiveData {
		source = binance.NewClient("")
	} else {
		source = backtest.CSVSource{Dir: cfg.Backtest.DataDir}
	}

	orc, err := oracle.ByName(cfg.Oracle.Name, cfg.Oracle.SizePct, cfg.Oracle.FastPeriod, cfg.Oracle.SlowPeriod)
	if err != nil {
		return err
	}

	jrn, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	if jrn != nil {
		defer jrn.Close()
	}

	runner := backtest.Runner{
		Config: backtest.Config{
			Symbols:           cfg.Backtest.Symbols,
			Interval:          market.Interval(cfg.Backtest.Interval),
			Start:             start,
			End:               end,
			InitialCapital:    cfg.Account.InitialCapital,
			MarginRequirement: cfg.Account.MarginRequirement,
			Fee:               cfg.Account.Fee,
			OracleRetries:     cfg.Oracle.Retries,
			OnOracleFailure:   backtest.FailurePolicy(cfg.Oracle.OnFailure),
		},
		Source:  source,
		Oracle:  orc,
		Journal: jrn,
	}
	if cfg.Risk.MaxPositionPct > 0 || cfg.Risk.MaxGrossPct > 0 {
		runner.Risk = &risk.Policy{
			MaxPositionPct: cfg.Risk.MaxPositionPct,
			MaxGrossPct:    cfg.Risk.MaxGrossPct,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	backtest.PrintResult(os.Stdout, res, cfg.Account.InitialCapital)
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.ValuesFile)
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
