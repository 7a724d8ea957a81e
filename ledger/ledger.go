package ledger

import (
	"errors"
	"fmt"
)

// ErrMarginExceeded is returned when an open would exceed the account's
// available margin. The account is left untouched; the caller decides
// whether to retry with a smaller size or skip the trade.
var ErrMarginExceeded = errors.New("margin exceeded")

// positions below this size are treated as fully closed
const dust = 1e-12

// Config holds the per-run account parameters.
type Config struct {
	InitialCapital    float64
	MarginRequirement float64 // fraction of notional backed by equity, 0 < r <= 1
	Fee               float64 // proportional fee charged on long opens, e.g. 0.001
}

// Account is the margin-aware portfolio ledger for a single backtest run.
// It is not safe for concurrent use; each run owns its own Account.
type Account struct {
	cfg Config

	CashAvailable float64
	Borrowed      float64
	Equity        float64
	Positions     map[string]*Position
}

// New constructs an Account with the full initial capital in cash.
func New(cfg Config) (*Account, error) {
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", cfg.InitialCapital)
	}
	if cfg.MarginRequirement <= 0 || cfg.MarginRequirement > 1 {
		return nil, fmt.Errorf("margin requirement must be in (0, 1], got %v", cfg.MarginRequirement)
	}
	if cfg.Fee < 0 {
		return nil, fmt.Errorf("fee must be non-negative, got %v", cfg.Fee)
	}
	return &Account{
		cfg:           cfg,
		CashAvailable: cfg.InitialCapital,
		Equity:        cfg.InitialCapital,
		Positions:     make(map[string]*Position),
	}, nil
}

// MarginRequirement returns the configured margin fraction.
func (a *Account) MarginRequirement() float64 { return a.cfg.MarginRequirement }

// AvailableMargin is the maximum additional notional exposure the account
// can open, given current equity.
func (a *Account) AvailableMargin() float64 {
	return a.Equity / a.cfg.MarginRequirement
}

// Apply executes one trade operation and returns the executed quantity.
// hold, non-positive quantities, and closes against a missing or
// wrong-side position are no-ops returning zero. ErrMarginExceeded is
// checked before any mutation; a rejected trade leaves the account
// byte-for-byte unchanged.
func (a *Account) Apply(symbol string, op Op, qty, price float64) (float64, error) {
	if op == OpHold || qty <= 0 {
		return 0, nil
	}
	if price <= 0 {
		return 0, fmt.Errorf("apply %s %s: price must be positive, got %v", op, symbol, price)
	}

	switch op {
	case OpOpenLong:
		return a.openLong(symbol, qty, price)
	case OpCloseLong:
		return a.closeLong(symbol, qty, price), nil
	case OpOpenShort:
		return a.openShort(symbol, qty, price)
	case OpCloseShort:
		return a.closeShort(symbol, qty, price), nil
	}
	return 0, fmt.Errorf("apply %s: unknown operation %q", symbol, op)
}

func (a *Account) openLong(symbol string, qty, price float64) (float64, error) {
	cost := qty * price * (1 + a.cfg.Fee)

	avail := a.CashAvailable / a.cfg.MarginRequirement
	if cost > avail {
		return 0, fmt.Errorf("open long %s: cost %.8f exceeds available margin %.8f: %w",
			symbol, cost, avail, ErrMarginExceeded)
	}

	pos := a.Positions[symbol]
	if pos != nil && pos.Side != SideLong {
		// close the short first; reversing in one step is not supported
		return 0, nil
	}
	if pos == nil {
		pos = &Position{Side: SideLong}
		a.Positions[symbol] = pos
	}

	newQty := pos.Quantity + qty
	pos.Entry = (pos.Entry*pos.Quantity + price*qty) / newQty
	pos.Quantity = newQty

	// Pay from cash first, borrow the shortfall.
	if a.CashAvailable >= cost {
		a.CashAvailable -= cost
	} else {
		borrowed := cost - a.CashAvailable
		a.CashAvailable = 0
		pos.MarginAllocated += borrowed
		a.Borrowed += borrowed
	}

	pos.markTo(price)
	a.revalue()
	return qty, nil
}

func (a *Account) closeLong(symbol string, qty, price float64) float64 {
	pos := a.Positions[symbol]
	if pos == nil || pos.Side != SideLong {
		return 0
	}
	if qty > pos.Quantity {
		// over-specification closes the full position
		qty = pos.Quantity
	}

	proceeds := qty * price

	// Release a proportional share of any margin financing.
	var released float64
	if pos.MarginAllocated > 0 {
		released = pos.MarginAllocated * qty / pos.Quantity
	}

	pos.Quantity -= qty
	pos.MarginAllocated -= released
	a.Borrowed -= released
	a.settle(proceeds - released)

	if pos.Quantity <= dust {
		delete(a.Positions, symbol)
	} else {
		pos.markTo(price)
	}
	a.revalue()
	return qty
}

func (a *Account) openShort(symbol string, qty, price float64) (float64, error) {
	proceeds := qty * price

	avail := a.CashAvailable / a.cfg.MarginRequirement
	if proceeds > avail {
		return 0, fmt.Errorf("open short %s: proceeds %.8f exceed available margin %.8f: %w",
			symbol, proceeds, avail, ErrMarginExceeded)
	}

	pos := a.Positions[symbol]
	if pos != nil && pos.Side != SideShort {
		return 0, nil
	}
	if pos == nil {
		pos = &Position{Side: SideShort}
		a.Positions[symbol] = pos
	}

	newQty := pos.Quantity + qty
	pos.Entry = (pos.Entry*pos.Quantity + price*qty) / newQty
	pos.Quantity = newQty

	// The short is entirely margin financed. Proceeds are locked as
	// collateral, not spendable cash.
	pos.MarginAllocated += proceeds
	a.Borrowed += proceeds

	pos.markTo(price)
	a.revalue()
	return qty, nil
}

func (a *Account) closeShort(symbol string, qty, price float64) float64 {
	pos := a.Positions[symbol]
	if pos == nil || pos.Side != SideShort {
		return 0
	}
	if qty > pos.Quantity {
		qty = pos.Quantity
	}

	coverCost := qty * price
	released := pos.MarginAllocated * qty / pos.Quantity

	pos.Quantity -= qty
	pos.MarginAllocated -= released
	a.Borrowed -= released

	// The released collateral pays for the cover; the remainder is the
	// realized P&L settling to cash.
	a.settle(released - coverCost)

	if pos.Quantity <= dust {
		delete(a.Positions, symbol)
	} else {
		pos.markTo(price)
	}
	a.revalue()
	return qty
}

// settle applies a signed cash movement. A shortfall beyond available
// cash is financed by borrowing so cash never goes negative.
func (a *Account) settle(delta float64) {
	c := a.CashAvailable + delta
	if c < 0 {
		a.Borrowed += -c
		c = 0
	}
	a.CashAvailable = c
}

// revalue recomputes equity from cash, debt, and every position's current
// mark. It runs after every mutation so equity is never stale.
func (a *Account) revalue() {
	eq := a.CashAvailable - a.Borrowed
	for _, pos := range a.Positions {
		eq += pos.value()
	}
	a.Equity = eq
}

// MarkToMarket re-marks every position that has a price in the map and
// recomputes equity. It returns the new equity. Trading activity is not
// required; this runs once per bar.
func (a *Account) MarkToMarket(prices map[string]float64) float64 {
	for symbol, pos := range a.Positions {
		if price, ok := prices[symbol]; ok {
			pos.markTo(price)
		}
	}
	a.revalue()
	return a.Equity
}

// Exposure returns the long and short notional exposure at current marks.
func (a *Account) Exposure() (long, short float64) {
	for _, pos := range a.Positions {
		if pos.Side == SideLong {
			long += pos.Quantity * pos.Current
		} else {
			short += pos.Quantity * pos.Current
		}
	}
	return long, short
}
