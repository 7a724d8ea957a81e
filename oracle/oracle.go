package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/marginsim/ledger"
)

// Signal is an analyst's directional opinion on one symbol. Signals are
// pass-through data: the simulation loop only counts them for reporting.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// Instruction is one trade instruction for one symbol.
type Instruction struct {
	Op       ledger.Op
	Quantity float64
}

// Request is the read-only state handed to an oracle once per bar.
type Request struct {
	Symbols []string
	Prices  map[string]float64
	Ledger  ledger.View
	Time    time.Time
}

// Decisions is an oracle's answer for one bar. Missing symbols are
// treated as hold by the caller. Signals is keyed analyst -> symbol.
type Decisions struct {
	Instructions map[string]Instruction
	Signals      map[string]map[string]Signal
}

// Oracle produces one instruction set per bar. Implementations may keep
// internal per-run state (indicators, last decision); a fresh oracle is
// constructed for every run.
type Oracle interface {
	Decide(ctx context.Context, req Request) (Decisions, error)
}

// ByName constructs a named oracle.
func ByName(name string, sizePct float64, fast, slow int) (Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hold", "noop", "none":
		return Hold{}, nil

	case "momentum", "sma-cross":
		return NewMomentum(MomentumConfig{
			SizePct:    sizePct,
			FastPeriod: fast,
			SlowPeriod: slow,
		}), nil

	default:
		return nil, fmt.Errorf("unknown oracle %q (supported: hold, momentum)", name)
	}
}
