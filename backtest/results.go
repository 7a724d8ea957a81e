package backtest

import (
	"fmt"
	"io"
	"math"
	"time"
)

// PrintResult writes a plain-text run summary.
func PrintResult(w io.Writer, res Result, initialCapital float64) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if n := len(res.History); n > 0 {
		fmt.Fprintf(w, "Start:         %s\n", res.History[0].Time.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", res.History[n-1].Time.Format(time.RFC3339))
		fmt.Fprintf(w, "Bars:          %d\n", n-1)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", initialCapital)
	fmt.Fprintf(w, "Cash:          %.2f\n", res.Final.CashAvailable)
	fmt.Fprintf(w, "Borrowed:      %.2f\n", res.Final.Borrowed)
	fmt.Fprintf(w, "Equity:        %.2f\n", res.Final.Equity)
	if initialCapital > 0 {
		fmt.Fprintf(w, "Return:        %.2f%%\n", (res.Final.Equity/initialCapital-1)*100)
	}
	fmt.Fprintf(w, "Open Positions: %d\n", len(res.Final.Positions))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	if res.Metrics == nil {
		fmt.Fprintln(w, "(not enough history for metrics)")
		return
	}
	fmt.Fprintf(w, "Sharpe Ratio:  %.4f\n", res.Metrics.SharpeRatio)
	if math.IsInf(res.Metrics.SortinoRatio, 1) {
		fmt.Fprintln(w, "Sortino Ratio: +Inf")
	} else {
		fmt.Fprintf(w, "Sortino Ratio: %.4f\n", res.Metrics.SortinoRatio)
	}
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", res.Metrics.MaxDrawdown)
	if !res.Metrics.MaxDrawdownDate.IsZero() {
		fmt.Fprintf(w, "Drawdown Date: %s\n", res.Metrics.MaxDrawdownDate.Format("2006-01-02"))
	}
}
