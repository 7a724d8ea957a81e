package risk

// Policy caps position concentration before an instruction reaches the
// ledger. Limits are expressed against equity, leverage-adjusted by the
// account's margin requirement.
type Policy struct {
	// MaxPositionPct is the share of (leveraged) equity a single
	// position's notional may occupy. 0.4 means 40%.
	MaxPositionPct float64

	// MaxGrossPct caps total gross exposure as a multiple of leveraged
	// equity. Zero disables the check.
	MaxGrossPct float64
}

// Default mirrors the conventional single-position limit of 40% of
// portfolio value.
func Default() Policy {
	return Policy{
		MaxPositionPct: 0.40,
	}
}
