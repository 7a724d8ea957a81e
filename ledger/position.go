package ledger

// Side of an open position. An instrument is either long or short, never
// both; the opposite direction must be closed before reversing.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is the open exposure on a single instrument. Entry is the
// volume-weighted average acquisition price and is recomputed on every
// increase. MarginAllocated is the quote currency borrowed to fund this
// position: shorts borrow the full notional at open, longs only the
// shortfall between cost and available cash.
type Position struct {
	Side            Side
	Quantity        float64
	Entry           float64
	Current         float64
	UnrealizedPNL   float64
	MarginAllocated float64
}

// markTo updates the mark-to-market fields at the given price.
func (p *Position) markTo(price float64) {
	p.Current = price
	if p.Side == SideLong {
		p.UnrealizedPNL = (price - p.Entry) * p.Quantity
	} else {
		p.UnrealizedPNL = (p.Entry - price) * p.Quantity
	}
}

// value is the position's contribution to equity at its current mark.
// Longs contribute full market value. Shorts contribute the locked
// collateral plus the mark-to-market gain or loss, so that opening a
// short at the mark leaves equity unchanged.
func (p *Position) value() float64 {
	if p.Side == SideLong {
		return p.Quantity * p.Current
	}
	return p.MarginAllocated + (p.Entry-p.Current)*p.Quantity
}
