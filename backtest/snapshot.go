package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/marginsim/ledger"
)

// Snapshot is an immutable per-bar record of portfolio valuation and
// exposure. Appended to an ordered history, never mutated.
type Snapshot struct {
	Time           time.Time
	TotalValue     float64
	LongExposure   float64
	ShortExposure  float64
	GrossExposure  float64
	NetExposure    float64
	LongShortRatio float64
}

// takeSnapshot values the account at the bar's prices.
func takeSnapshot(acct *ledger.Account, at time.Time) Snapshot {
	long, short := acct.Exposure()

	ratio := math.Inf(1)
	if short > 1e-9 {
		ratio = long / short
	}

	return Snapshot{
		Time:           at,
		TotalValue:     acct.Equity,
		LongExposure:   long,
		ShortExposure:  short,
		GrossExposure:  long + short,
		NetExposure:    long - short,
		LongShortRatio: ratio,
	}
}

// Row is per-bar, per-symbol data suitable for tabular display. Signal
// counts come from the oracle's analyst signals and are pass-through.
type Row struct {
	Time          time.Time
	Symbol        string
	Action        string
	Quantity      float64
	Price         float64
	NetQuantity   float64
	PositionValue float64
	Bullish       int
	Bearish       int
	Neutral       int
}
