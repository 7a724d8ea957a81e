package oracle

import "context"

// Hold never trades. Useful as a baseline and in tests.
type Hold struct{}

func (Hold) Decide(ctx context.Context, req Request) (Decisions, error) {
	_ = ctx
	signals := make(map[string]Signal, len(req.Symbols))
	for _, symbol := range req.Symbols {
		signals[symbol] = SignalNeutral
	}
	return Decisions{
		Instructions: map[string]Instruction{},
		Signals:      map[string]map[string]Signal{"hold": signals},
	}, nil
}
