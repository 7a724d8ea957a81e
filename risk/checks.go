package risk

import (
	"fmt"

	"github.com/rustyeddy/marginsim/ledger"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of a pre-trade check. Quantity is the size the
// policy permits; it may be smaller than requested, and zero when the
// trade is disallowed entirely.
type Decision struct {
	Allowed    bool
	Quantity   float64
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
}

// Evaluate sizes an open instruction against the policy. Closes and
// holds pass through untouched: risk limits never prevent reducing
// exposure.
func Evaluate(p Policy, view ledger.View, symbol string, op ledger.Op, qty, price float64) Decision {
	d := Decision{Allowed: true, Quantity: qty}

	if op != ledger.OpOpenLong && op != ledger.OpOpenShort {
		return d
	}
	if price <= 0 || qty <= 0 {
		return d
	}

	leverage := 1.0
	if view.MarginRequirement > 0 {
		leverage = 1 / view.MarginRequirement
	}

	if p.MaxPositionPct > 0 {
		limit := view.Equity * p.MaxPositionPct * leverage

		var current float64
		if pos, ok := view.Positions[symbol]; ok {
			current = pos.Quantity * pos.Current
		}

		remaining := limit - current
		if remaining <= 0 {
			d.Allowed = false
			d.Quantity = 0
			d.add("POSITION_LIMIT",
				fmt.Sprintf("%s notional %.2f already at limit %.2f", symbol, current, limit))
			return d
		}
		if qty*price > remaining {
			capped := remaining / price
			d.add("POSITION_CAPPED",
				fmt.Sprintf("%s quantity reduced %.8f -> %.8f by position limit %.2f", symbol, qty, capped, limit))
			d.Quantity = capped
		}
	}

	if p.MaxGrossPct > 0 {
		var gross float64
		for _, pos := range view.Positions {
			gross += pos.Quantity * pos.Current
		}
		limit := view.Equity * p.MaxGrossPct * leverage
		if gross+d.Quantity*price > limit {
			remaining := limit - gross
			if remaining <= 0 {
				d.Allowed = false
				d.Quantity = 0
				d.add("GROSS_LIMIT",
					fmt.Sprintf("gross exposure %.2f at limit %.2f", gross, limit))
				return d
			}
			capped := remaining / price
			if capped < d.Quantity {
				d.add("GROSS_CAPPED",
					fmt.Sprintf("%s quantity reduced %.8f -> %.8f by gross limit %.2f", symbol, d.Quantity, capped, limit))
				d.Quantity = capped
			}
		}
	}

	return d
}
