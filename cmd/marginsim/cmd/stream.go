package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marginsim/binance"
	"github.com/rustyeddy/marginsim/market"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Watch live klines from the Binance websocket feed",
	Long: `Stream subscribes to live kline updates for the given symbols and
prints each bar as it arrives. Closed bars are marked with '*'; pass
--final-only to see only those.

Runs until interrupted.

Example:
  marginsim stream --symbols BTCUSDT,ETHUSDT --interval 1m --final-only`,
	RunE: runStream,
}

var (
	stSymbols   []string
	stInterval  string
	stFinalOnly bool
)

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().StringSliceVarP(&stSymbols, "symbols", "s", nil, "symbols to watch (required)")
	streamCmd.Flags().StringVarP(&stInterval, "interval", "i", "1m", "kline interval")
	streamCmd.Flags().BoolVar(&stFinalOnly, "final-only", false, "print only closed bars")
	streamCmd.MarkFlagRequired("symbols")
}

func runStream(cmd *cobra.Command, args []string) error {
	s, err := binance.NewStream("", market.Interval(stInterval), stSymbols...)
	if err != nil {
		return err
	}
	if err := s.Connect(); err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.Events():
			if !ok {
				return s.Err()
			}
			if stFinalOnly && !ev.Final {
				continue
			}
			marker := " "
			if ev.Final {
				marker = "*"
			}
			fmt.Printf("%s %s %-10s O:%.4f H:%.4f L:%.4f C:%.4f V:%.4f\n",
				marker,
				ev.Candle.CloseTime.Format(time.RFC3339),
				ev.Symbol,
				ev.Candle.Open, ev.Candle.High, ev.Candle.Low, ev.Candle.Close,
				ev.Candle.Volume,
			)
		}
	}
}
