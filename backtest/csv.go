package backtest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/marginsim/market"
)

// CSVSource reads candle CSV files from a directory, one file per symbol
// named <SYMBOL>.csv with rows:
//
//	open_time,open,high,low,close,volume,close_time
//
// where times are RFC3339. A header row is allowed; empty and short rows
// are skipped.
type CSVSource struct {
	Dir string
}

func (s CSVSource) Candles(ctx context.Context, symbol string, interval market.Interval, start, end time.Time) ([]market.Candle, error) {
	_ = ctx
	_ = interval

	path := filepath.Join(s.Dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var candles []market.Candle
	sawFirst := false
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row.
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "open_time") {
				continue
			}
		}

		c, ok, err := parseCandleRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if !ok {
			continue
		}
		if !start.IsZero() && c.OpenTime.Before(start) {
			continue
		}
		if !end.IsZero() && !c.OpenTime.Before(end) {
			continue
		}
		candles = append(candles, c)
	}

	return candles, nil
}

func parseCandleRow(row []string) (market.Candle, bool, error) {
	if len(row) < 7 {
		return market.Candle{}, false, nil
	}

	openTime, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return market.Candle{}, false, fmt.Errorf("bad open_time %q: %w", row[0], err)
	}
	closeTime, err := time.Parse(time.RFC3339, strings.TrimSpace(row[6]))
	if err != nil {
		return market.Candle{}, false, fmt.Errorf("bad close_time %q: %w", row[6], err)
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("bad field %q: %w", row[i], err)
		}
		vals[i-1] = v
	}

	return market.Candle{
		OpenTime:  openTime,
		CloseTime: closeTime,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, true, nil
}
