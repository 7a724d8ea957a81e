package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/marginsim/market"
)

// ErrDataGap means the price source returned no candles for a requested
// range. The run cannot proceed without prices to mark positions, so this
// is fatal.
var ErrDataGap = errors.New("no price data for range")

// PriceSource provides historical candles for one symbol over a range, in
// ascending time order with one row per interval.
type PriceSource interface {
	Candles(ctx context.Context, symbol string, interval market.Interval, start, end time.Time) ([]market.Candle, error)
}

// prefetch loads every tracked symbol's series for the whole range before
// the loop starts. Backtests are bounded and replayable, so prefetching
// beats streaming. Series must align bar for bar across symbols.
func prefetch(ctx context.Context, src PriceSource, symbols []string, interval market.Interval, start, end time.Time) (map[string][]market.Candle, error) {
	series := make(map[string][]market.Candle, len(symbols))

	var barCount int
	for i, symbol := range symbols {
		candles, err := src.Candles(ctx, symbol, interval, start, end)
		if err != nil {
			return nil, fmt.Errorf("prefetch %s %s: %w", symbol, interval, err)
		}
		if len(candles) == 0 {
			return nil, fmt.Errorf("prefetch %s %s [%s, %s): %w",
				symbol, interval, start.Format(time.RFC3339), end.Format(time.RFC3339), ErrDataGap)
		}
		if i == 0 {
			barCount = len(candles)
		} else if len(candles) != barCount {
			return nil, fmt.Errorf("prefetch %s: series length %d does not match %s's %d",
				symbol, len(candles), symbols[0], barCount)
		}
		series[symbol] = candles
	}

	return series, nil
}

// SeriesSource is an in-memory PriceSource, keyed by symbol. Used by
// tests and by replays of already-loaded data.
type SeriesSource map[string][]market.Candle

func (s SeriesSource) Candles(ctx context.Context, symbol string, interval market.Interval, start, end time.Time) ([]market.Candle, error) {
	_ = ctx
	_ = interval
	candles := s[symbol]
	var out []market.Candle
	for _, c := range candles {
		if !start.IsZero() && c.OpenTime.Before(start) {
			continue
		}
		if !end.IsZero() && !c.OpenTime.Before(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
