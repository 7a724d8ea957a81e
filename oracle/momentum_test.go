package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/rustyeddy/marginsim/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewWithMargin(avail float64) ledger.View {
	return ledger.View{
		AvailableMargin: avail,
		Positions:       map[string]ledger.Position{},
	}
}

func decide(t *testing.T, o Oracle, symbols []string, prices map[string]float64, view ledger.View) Decisions {
	t.Helper()
	d, err := o.Decide(context.Background(), Request{
		Symbols: symbols,
		Prices:  prices,
		Ledger:  view,
		Time:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return d
}

func TestHoldNeverTrades(t *testing.T) {
	t.Parallel()

	d := decide(t, Hold{}, []string{"ETHUSDC", "BTCUSDC"}, map[string]float64{"ETHUSDC": 1}, viewWithMargin(100))

	assert.Empty(t, d.Instructions)
	assert.Equal(t, SignalNeutral, d.Signals["hold"]["ETHUSDC"])
	assert.Equal(t, SignalNeutral, d.Signals["hold"]["BTCUSDC"])
}

func TestMomentumWarmupIsNeutral(t *testing.T) {
	t.Parallel()

	o := NewMomentum(MomentumConfig{SizePct: 0.5, FastPeriod: 2, SlowPeriod: 3})
	symbols := []string{"ETHUSDC"}

	d := decide(t, o, symbols, map[string]float64{"ETHUSDC": 100}, viewWithMargin(100))
	assert.Empty(t, d.Instructions)
	assert.Equal(t, SignalNeutral, d.Signals["momentum"]["ETHUSDC"])
}

func TestMomentumBullCrossOpensLong(t *testing.T) {
	t.Parallel()

	o := NewMomentum(MomentumConfig{SizePct: 0.5, FastPeriod: 2, SlowPeriod: 3})
	symbols := []string{"ETHUSDC"}
	view := viewWithMargin(100)

	for _, price := range []float64{100, 100, 100} {
		d := decide(t, o, symbols, map[string]float64{"ETHUSDC": price}, view)
		assert.Empty(t, d.Instructions)
	}

	d := decide(t, o, symbols, map[string]float64{"ETHUSDC": 110}, view)
	require.Contains(t, d.Instructions, "ETHUSDC")
	instr := d.Instructions["ETHUSDC"]
	assert.Equal(t, ledger.OpOpenLong, instr.Op)
	// floor(100 * 0.5 / 110 * 1000) / 1000
	assert.InDelta(t, 0.454, instr.Quantity, 1e-12)
	assert.Equal(t, SignalBullish, d.Signals["momentum"]["ETHUSDC"])
}

func TestMomentumBearCrossClosesLong(t *testing.T) {
	t.Parallel()

	o := NewMomentum(MomentumConfig{SizePct: 0.5, FastPeriod: 2, SlowPeriod: 3})
	symbols := []string{"ETHUSDC"}

	flat := viewWithMargin(100)
	for _, price := range []float64{100, 100, 100, 110} {
		decide(t, o, symbols, map[string]float64{"ETHUSDC": price}, flat)
	}

	long := viewWithMargin(100)
	long.Positions["ETHUSDC"] = ledger.Position{Side: ledger.SideLong, Quantity: 0.454}

	d := decide(t, o, symbols, map[string]float64{"ETHUSDC": 60}, long)
	require.Contains(t, d.Instructions, "ETHUSDC")
	instr := d.Instructions["ETHUSDC"]
	assert.Equal(t, ledger.OpCloseLong, instr.Op)
	assert.InDelta(t, 0.454, instr.Quantity, 1e-12)
	assert.Equal(t, SignalBearish, d.Signals["momentum"]["ETHUSDC"])
}

func TestByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "hold"},
		{name: "noop"},
		{name: "momentum"},
		{name: "SMA-Cross"},
		{name: "llm", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o, err := ByName(tt.name, 0.1, 5, 15)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, o)
		})
	}
}
