package oracle

import (
	"context"
	"math"

	"github.com/rustyeddy/marginsim/ledger"
)

// quantities are rounded to 0.001 of the instrument's native unit
const qtyDecimals = 3

// MomentumConfig holds the SMA crossover parameters.
type MomentumConfig struct {
	SizePct    float64 // fraction of available margin committed per entry, e.g. 0.1
	FastPeriod int
	SlowPeriod int
}

// Momentum is a fast/slow SMA crossover oracle.
// - Bull cross: close any short, then go long on the following bars
// - Bear cross: close any long, then go short
// It emits a bullish/bearish/neutral signal per symbol from the SMA diff
// regardless of whether it trades.
type Momentum struct {
	cfg MomentumConfig

	fast map[string]*sma
	slow map[string]*sma
}

func NewMomentum(cfg MomentumConfig) *Momentum {
	if cfg.SizePct <= 0 {
		cfg.SizePct = 0.1
	}
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = 5
	}
	if cfg.SlowPeriod <= cfg.FastPeriod {
		cfg.SlowPeriod = cfg.FastPeriod * 3
	}
	return &Momentum{
		cfg:  cfg,
		fast: make(map[string]*sma),
		slow: make(map[string]*sma),
	}
}

func (m *Momentum) Decide(ctx context.Context, req Request) (Decisions, error) {
	_ = ctx

	instructions := make(map[string]Instruction, len(req.Symbols))
	signals := make(map[string]Signal, len(req.Symbols))

	for _, symbol := range req.Symbols {
		price, ok := req.Prices[symbol]
		if !ok {
			signals[symbol] = SignalNeutral
			continue
		}

		fast := m.indicator(m.fast, symbol, m.cfg.FastPeriod)
		slow := m.indicator(m.slow, symbol, m.cfg.SlowPeriod)
		fast.update(price)
		slow.update(price)

		if !fast.ready() || !slow.ready() {
			signals[symbol] = SignalNeutral
			continue
		}

		diff := fast.value() - slow.value()
		switch {
		case diff > 0:
			signals[symbol] = SignalBullish
		case diff < 0:
			signals[symbol] = SignalBearish
		default:
			signals[symbol] = SignalNeutral
		}

		net := req.Ledger.NetQuantity(symbol)
		switch {
		case diff > 0 && net < 0:
			instructions[symbol] = Instruction{Op: ledger.OpCloseShort, Quantity: -net}
		case diff > 0 && net == 0:
			if qty := m.size(req.Ledger, price); qty > 0 {
				instructions[symbol] = Instruction{Op: ledger.OpOpenLong, Quantity: qty}
			}
		case diff < 0 && net > 0:
			instructions[symbol] = Instruction{Op: ledger.OpCloseLong, Quantity: net}
		case diff < 0 && net == 0:
			if qty := m.size(req.Ledger, price); qty > 0 {
				instructions[symbol] = Instruction{Op: ledger.OpOpenShort, Quantity: qty}
			}
		}
	}

	return Decisions{
		Instructions: instructions,
		Signals:      map[string]map[string]Signal{"momentum": signals},
	}, nil
}

// size converts a fraction of available margin into a quantity at the
// current price, rounded down so the ledger's margin check cannot trip.
func (m *Momentum) size(view ledger.View, price float64) float64 {
	notional := view.AvailableMargin * m.cfg.SizePct
	if notional <= 0 || price <= 0 {
		return 0
	}
	scale := math.Pow(10, qtyDecimals)
	return math.Floor(notional/price*scale) / scale
}

func (m *Momentum) indicator(set map[string]*sma, symbol string, period int) *sma {
	s, ok := set[symbol]
	if !ok {
		s = &sma{period: period}
		set[symbol] = s
	}
	return s
}

// sma is a streaming simple moving average over closes.
type sma struct {
	period int
	closes []float64
}

func (s *sma) update(price float64) {
	s.closes = append(s.closes, price)
	if len(s.closes) > s.period {
		s.closes = s.closes[1:]
	}
}

func (s *sma) ready() bool {
	return len(s.closes) >= s.period
}

func (s *sma) value() float64 {
	if !s.ready() {
		return 0
	}
	sum := 0.0
	for _, c := range s.closes {
		sum += c
	}
	return sum / float64(len(s.closes))
}
