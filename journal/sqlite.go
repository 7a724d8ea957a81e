package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, time, symbol, op, quantity, price)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Time, t.Symbol, t.Op, t.Quantity, t.Price,
	)
	return err
}

func (j *SQLiteJournal) RecordValuation(v ValuationRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO valuations
		(time, total_value, long_exposure, short_exposure, gross_exposure, net_exposure, long_short_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.Time, v.TotalValue, v.LongExposure, v.ShortExposure, v.GrossExposure, v.NetExposure, v.LongShortRatio,
	)
	return err
}

// ListTradesBetween returns trades executed in [start, end), ordered by
// time.
func (j *SQLiteJournal) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, time, symbol, op, quantity, price
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time`,
		start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.TradeID, &t.Time, &t.Symbol, &t.Op, &t.Quantity, &t.Price); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListValuations returns the full valuation history in time order.
func (j *SQLiteJournal) ListValuations() ([]ValuationRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, total_value, long_exposure, short_exposure, gross_exposure, net_exposure, long_short_ratio
		FROM valuations
		ORDER BY time`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValuationRecord
	for rows.Next() {
		var v ValuationRecord
		if err := rows.Scan(&v.Time, &v.TotalValue, &v.LongExposure, &v.ShortExposure, &v.GrossExposure, &v.NetExposure, &v.LongShortRatio); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
