package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	valuationsPath := filepath.Join(dir, "valuations.csv")

	j, err := NewCSV(tradesPath, valuationsPath)
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:  "01TEST",
		Time:     at,
		Symbol:   "BTCUSDT",
		Op:       "open_short",
		Quantity: 1.25,
		Price:    64000,
	}))
	require.NoError(t, j.RecordValuation(ValuationRecord{
		Time:          at,
		TotalValue:    1000,
		ShortExposure: 80000,
	}))
	require.NoError(t, j.Close())

	trades := readAll(t, tradesPath)
	require.Len(t, trades, 2)
	assert.Equal(t, []string{"trade_id", "time", "symbol", "op", "quantity", "price"}, trades[0])
	assert.Equal(t, []string{"01TEST", "2025-06-01T12:00:00Z", "BTCUSDT", "open_short", "1.250000", "64000.000000"}, trades[1])

	valuations := readAll(t, valuationsPath)
	require.Len(t, valuations, 2)
	assert.Equal(t, "1000.000000", valuations[1][1])
	assert.Equal(t, "80000.000000", valuations[1][3])
}
