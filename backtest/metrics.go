package backtest

import (
	"math"
	"time"
)

const (
	// the target market trades continuously
	periodsPerYear = 365
	// annualized risk-free rate used for excess returns
	riskFreeAnnual = 0.0434
	// numerical floor below which a standard deviation counts as zero
	stdFloor = 1e-12
)

// Metrics is the rolling performance summary recomputed over the full
// snapshot history. MaxDrawdown is a negative percentage;
// MaxDrawdownDate is the zero time when no drawdown occurred.
type Metrics struct {
	SharpeRatio     float64
	SortinoRatio    float64
	MaxDrawdown     float64
	MaxDrawdownDate time.Time
}

// computeMetrics derives Sharpe, Sortino, and max drawdown from the
// snapshot value series. It returns nil until there are at least two
// daily returns to work with.
func computeMetrics(history []Snapshot) *Metrics {
	returns := make([]float64, 0, len(history))
	for i := 1; i < len(history); i++ {
		prev := history[i-1].TotalValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (history[i].TotalValue-prev)/prev)
	}
	if len(returns) < 2 {
		return nil
	}

	riskFreeDaily := riskFreeAnnual / periodsPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreeDaily
	}

	mu := mean(excess)
	sigma := sampleStd(excess)
	annualize := math.Sqrt(periodsPerYear)

	m := &Metrics{}

	if sigma > stdFloor {
		m.SharpeRatio = annualize * mu / sigma
	}

	var negative []float64
	for _, e := range excess {
		if e < 0 {
			negative = append(negative, e)
		}
	}
	if down := sampleStd(negative); down > stdFloor {
		m.SortinoRatio = annualize * mu / down
	} else if mu > 0 {
		m.SortinoRatio = math.Inf(1)
	}

	m.MaxDrawdown, m.MaxDrawdownDate = maxDrawdown(history)
	return m
}

// maxDrawdown returns the deepest decline from a rolling peak as a
// negative percentage, with the timestamp at which it occurred.
func maxDrawdown(history []Snapshot) (float64, time.Time) {
	var (
		rollingMax float64
		worst      float64
		worstAt    time.Time
	)
	for _, s := range history {
		if s.TotalValue > rollingMax {
			rollingMax = s.TotalValue
		}
		if rollingMax == 0 {
			continue
		}
		dd := (s.TotalValue - rollingMax) / rollingMax
		if dd < worst {
			worst = dd
			worstAt = s.Time
		}
	}
	return worst * 100, worstAt
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 standard deviation; zero when fewer than two
// samples exist.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
