package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/marginsim/internal/id"
	"github.com/rustyeddy/marginsim/journal"
	"github.com/rustyeddy/marginsim/ledger"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/oracle"
	"github.com/rustyeddy/marginsim/risk"
)

// ErrOracleContract means the decision oracle kept returning structurally
// invalid instructions (unknown operation, non-finite quantity) or kept
// failing outright, past the retry budget.
var ErrOracleContract = errors.New("oracle contract violation")

// FailurePolicy decides what happens to a bar whose oracle call exhausts
// its retries.
type FailurePolicy string

const (
	// FailHold treats the bar as all-hold and keeps the run going.
	FailHold FailurePolicy = "hold"
	// FailAbort stops the run with an error.
	FailAbort FailurePolicy = "abort"
)

// Config controls one backtest run.
type Config struct {
	Symbols  []string
	Interval market.Interval
	Start    time.Time
	End      time.Time

	InitialCapital    float64
	MarginRequirement float64
	Fee               float64

	// OracleRetries is the number of oracle attempts per bar before the
	// failure policy applies. Zero means the default of 3.
	OracleRetries   int
	OnOracleFailure FailurePolicy
}

// Runner drives the ledger through a chronological sequence of bars using
// an external decision oracle. Single-threaded and synchronous; each run
// owns an independent account.
type Runner struct {
	Config  Config
	Source  PriceSource
	Oracle  oracle.Oracle
	Journal journal.Journal // optional
	Risk    *risk.Policy    // optional pre-trade position caps
}

// Result carries everything external reporting needs.
type Result struct {
	Metrics *Metrics
	History []Snapshot
	Rows    []Row
	Final   ledger.View
}

// Run executes the backtest loop:
//  1. prefetch all bars for every tracked symbol
//  2. per bar: oracle decision -> apply instructions -> mark to market
//  3. snapshot, then recompute rolling metrics once enough history exists
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Source == nil {
		return Result{}, fmt.Errorf("backtest: Source is required")
	}
	if r.Oracle == nil {
		return Result{}, fmt.Errorf("backtest: Oracle is required")
	}
	if len(r.Config.Symbols) == 0 {
		return Result{}, fmt.Errorf("backtest: at least one symbol is required")
	}

	acct, err := ledger.New(ledger.Config{
		InitialCapital:    r.Config.InitialCapital,
		MarginRequirement: r.Config.MarginRequirement,
		Fee:               r.Config.Fee,
	})
	if err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}

	series, err := prefetch(ctx, r.Source, r.Config.Symbols, r.Config.Interval, r.Config.Start, r.Config.End)
	if err != nil {
		return Result{}, err
	}

	primary := series[r.Config.Symbols[0]]

	// Seed the history with starting capital so the first bar's return is
	// measured against it.
	history := []Snapshot{{Time: primary[0].OpenTime, TotalValue: r.Config.InitialCapital}}

	var (
		rows    []Row
		metrics *Metrics
	)

	for i := range primary {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		barTime := primary[i].CloseTime
		prices := make(map[string]float64, len(r.Config.Symbols))
		for _, symbol := range r.Config.Symbols {
			prices[symbol] = series[symbol][i].Close
		}

		decisions, err := r.decide(ctx, oracle.Request{
			Symbols: r.Config.Symbols,
			Prices:  prices,
			Ledger:  acct.View(),
			Time:    barTime,
		})
		if err != nil {
			return Result{}, err
		}

		executed := make(map[string]float64, len(r.Config.Symbols))
		actions := make(map[string]ledger.Op, len(r.Config.Symbols))
		for _, symbol := range r.Config.Symbols {
			instr, ok := decisions.Instructions[symbol]
			if !ok {
				instr = oracle.Instruction{Op: ledger.OpHold}
			}
			actions[symbol] = instr.Op

			qty := instr.Quantity
			if r.Risk != nil {
				qty = risk.Evaluate(*r.Risk, acct.View(), symbol, instr.Op, qty, prices[symbol]).Quantity
			}

			done, err := acct.Apply(symbol, instr.Op, qty, prices[symbol])
			if err != nil {
				if errors.Is(err, ledger.ErrMarginExceeded) {
					// recoverable: skip the trade, keep the run going
					continue
				}
				return Result{}, fmt.Errorf("bar %s: %w", barTime.Format(time.RFC3339), err)
			}
			executed[symbol] = done

			if done > 0 && r.Journal != nil {
				rec := journal.TradeRecord{
					TradeID:  id.New(),
					Time:     barTime,
					Symbol:   symbol,
					Op:       string(instr.Op),
					Quantity: done,
					Price:    prices[symbol],
				}
				if err := r.Journal.RecordTrade(rec); err != nil {
					return Result{}, fmt.Errorf("record trade: %w", err)
				}
			}
		}

		acct.MarkToMarket(prices)

		snap := takeSnapshot(acct, barTime)
		history = append(history, snap)
		if r.Journal != nil {
			if err := r.Journal.RecordValuation(journal.ValuationRecord{
				Time:           snap.Time,
				TotalValue:     snap.TotalValue,
				LongExposure:   snap.LongExposure,
				ShortExposure:  snap.ShortExposure,
				GrossExposure:  snap.GrossExposure,
				NetExposure:    snap.NetExposure,
				LongShortRatio: snap.LongShortRatio,
			}); err != nil {
				return Result{}, fmt.Errorf("record valuation: %w", err)
			}
		}

		view := acct.View()
		for _, symbol := range r.Config.Symbols {
			bullish, bearish, neutral := countSignals(decisions.Signals, symbol)
			net := view.NetQuantity(symbol)
			rows = append(rows, Row{
				Time:          barTime,
				Symbol:        symbol,
				Action:        string(actions[symbol]),
				Quantity:      executed[symbol],
				Price:         prices[symbol],
				NetQuantity:   net,
				PositionValue: net * prices[symbol],
				Bullish:       bullish,
				Bearish:       bearish,
				Neutral:       neutral,
			})
		}

		if len(history) > 3 {
			metrics = computeMetrics(history)
		}
	}

	return Result{
		Metrics: metrics,
		History: history,
		Rows:    rows,
		Final:   acct.View(),
	}, nil
}

// decide calls the oracle with bounded retries. Structural validation
// failures and oracle errors both consume attempts; on exhaustion the
// failure policy picks between aborting and an all-hold bar.
func (r *Runner) decide(ctx context.Context, req oracle.Request) (oracle.Decisions, error) {
	attempts := r.Config.OracleRetries
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		decisions, err := r.Oracle.Decide(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if err := validateDecisions(decisions, req.Symbols); err != nil {
			lastErr = err
			continue
		}
		return decisions, nil
	}

	if r.Config.OnOracleFailure == FailAbort {
		return oracle.Decisions{}, fmt.Errorf("bar %s: oracle failed after %d attempts: %w",
			req.Time.Format(time.RFC3339), attempts, lastErr)
	}
	// bar degrades to all-hold
	return oracle.Decisions{}, nil
}

// validateDecisions enforces the oracle contract: known operations,
// finite non-negative quantities, tracked symbols only.
func validateDecisions(d oracle.Decisions, symbols []string) error {
	tracked := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		tracked[s] = true
	}

	for symbol, instr := range d.Instructions {
		if !tracked[symbol] {
			return fmt.Errorf("instruction for untracked symbol %q: %w", symbol, ErrOracleContract)
		}
		if _, err := ledger.ParseOp(string(instr.Op)); err != nil {
			return fmt.Errorf("%s: %v: %w", symbol, err, ErrOracleContract)
		}
		if math.IsNaN(instr.Quantity) || math.IsInf(instr.Quantity, 0) || instr.Quantity < 0 {
			return fmt.Errorf("%s: quantity %v is not a valid size: %w", symbol, instr.Quantity, ErrOracleContract)
		}
	}
	return nil
}

func countSignals(signals map[string]map[string]oracle.Signal, symbol string) (bullish, bearish, neutral int) {
	for _, bySymbol := range signals {
		switch bySymbol[symbol] {
		case oracle.SignalBullish:
			bullish++
		case oracle.SignalBearish:
			bearish++
		case oracle.SignalNeutral:
			neutral++
		}
	}
	return bullish, bearish, neutral
}
