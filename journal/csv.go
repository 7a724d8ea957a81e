package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	trades     *csv.Writer
	valuations *csv.Writer
	tf, vf     *os.File
}

func NewCSV(tradesPath, valuationsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	vf, err := os.Create(valuationsPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	vw := csv.NewWriter(vf)

	if err := tw.Write([]string{"trade_id", "time", "symbol", "op", "quantity", "price"}); err != nil {
		return nil, err
	}
	if err := vw.Write([]string{"time", "total_value", "long_exposure", "short_exposure", "gross_exposure", "net_exposure", "long_short_ratio"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	vw.Flush()
	if err := vw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{trades: tw, valuations: vw, tf: tf, vf: vf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Time.Format(time.RFC3339),
		t.Symbol,
		t.Op,
		f(t.Quantity),
		f(t.Price),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordValuation(v ValuationRecord) error {
	err := j.valuations.Write([]string{
		v.Time.Format(time.RFC3339),
		f(v.TotalValue),
		f(v.LongExposure),
		f(v.ShortExposure),
		f(v.GrossExposure),
		f(v.NetExposure),
		f(v.LongShortRatio),
	})
	if err != nil {
		return err
	}
	j.valuations.Flush()
	return j.valuations.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.valuations.Flush()
	if err := j.valuations.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.vf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
