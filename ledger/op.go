package ledger

import "fmt"

// Op is one of the five trade operations the ledger accepts.
type Op string

const (
	OpHold       Op = "hold"
	OpOpenLong   Op = "open_long"
	OpCloseLong  Op = "close_long"
	OpOpenShort  Op = "open_short"
	OpCloseShort Op = "close_short"
)

// ParseOp validates an operation name coming from an external decision
// source.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpHold, OpOpenLong, OpCloseLong, OpOpenShort, OpCloseShort:
		return Op(s), nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}
