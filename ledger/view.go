package ledger

// View is a read-only copy of the account handed to decision oracles and
// reporting. Mutating a View has no effect on the Account it came from.
type View struct {
	CashAvailable     float64
	Borrowed          float64
	Equity            float64
	AvailableMargin   float64
	MarginRequirement float64
	Positions         map[string]Position
}

// View returns a deep copy of the account state.
func (a *Account) View() View {
	positions := make(map[string]Position, len(a.Positions))
	for symbol, pos := range a.Positions {
		positions[symbol] = *pos
	}
	return View{
		CashAvailable:     a.CashAvailable,
		Borrowed:          a.Borrowed,
		Equity:            a.Equity,
		AvailableMargin:   a.AvailableMargin(),
		MarginRequirement: a.cfg.MarginRequirement,
		Positions:         positions,
	}
}

// NetQuantity returns the signed position size for a symbol, negative for
// shorts and zero when flat.
func (v View) NetQuantity(symbol string) float64 {
	pos, ok := v.Positions[symbol]
	if !ok {
		return 0
	}
	if pos.Side == SideShort {
		return -pos.Quantity
	}
	return pos.Quantity
}
