package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xyproto/unzip"

	"github.com/rustyeddy/marginsim/market"
)

// visionBaseURL hosts Binance's public historical data archive.
const visionBaseURL = "https://data.binance.vision"

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download historical klines from the Binance archive",
	Long: `Download fetches monthly kline ZIP archives from data.binance.vision,
extracts them, and writes one normalized <SYMBOL>.csv per symbol into
the data directory, ready for 'marginsim backtest'.

Example:
  marginsim download --symbols BTCUSDT,ETHUSDT --interval 1d \
    --from 2024-01 --to 2024-06 --dir data`,
	RunE: runDownload,
}

var (
	dlSymbols  []string
	dlInterval string
	dlFrom     string
	dlTo       string
	dlDir      string
)

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringSliceVarP(&dlSymbols, "symbols", "s", nil, "symbols to download (required)")
	downloadCmd.Flags().StringVarP(&dlInterval, "interval", "i", "1d", "kline interval")
	downloadCmd.Flags().StringVar(&dlFrom, "from", "", "first month, YYYY-MM (required)")
	downloadCmd.Flags().StringVar(&dlTo, "to", "", "last month, YYYY-MM (required)")
	downloadCmd.Flags().StringVarP(&dlDir, "dir", "d", "data", "output directory")
	downloadCmd.MarkFlagRequired("symbols")
	downloadCmd.MarkFlagRequired("from")
	downloadCmd.MarkFlagRequired("to")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if !market.Interval(dlInterval).Valid() {
		return fmt.Errorf("unknown interval: %s", dlInterval)
	}
	from, err := time.Parse("2006-01", dlFrom)
	if err != nil {
		return fmt.Errorf("bad --from: %w", err)
	}
	to, err := time.Parse("2006-01", dlTo)
	if err != nil {
		return fmt.Errorf("bad --to: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("--to %s is before --from %s", dlTo, dlFrom)
	}

	if err := os.MkdirAll(dlDir, 0755); err != nil {
		return err
	}

	for _, symbol := range dlSymbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if err := downloadSymbol(symbol, from, to); err != nil {
			return fmt.Errorf("%s: %w", symbol, err)
		}
	}
	return nil
}

func downloadSymbol(symbol string, from, to time.Time) error {
	workDir, err := os.MkdirTemp("", "marginsim-download-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	var rows [][]string
	for month := from; !month.After(to); month = month.AddDate(0, 1, 0) {
		monthRows, err := fetchMonth(workDir, symbol, month)
		if err != nil {
			return err
		}
		rows = append(rows, monthRows...)
		fmt.Printf("  %s %s: %d bars\n", symbol, month.Format("2006-01"), len(monthRows))
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	outPath := filepath.Join(dlDir, symbol+".csv")
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"open_time", "open", "high", "low", "close", "volume", "close_time"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Printf("✓ %s: %d bars -> %s\n", symbol, len(rows), outPath)
	return nil
}

// fetchMonth downloads and extracts one monthly archive, returning rows
// in the normalized CSV schema.
func fetchMonth(workDir, symbol string, month time.Time) ([][]string, error) {
	name := fmt.Sprintf("%s-%s-%s", symbol, dlInterval, month.Format("2006-01"))
	url := fmt.Sprintf("%s/data/spot/monthly/klines/%s/%s/%s.zip",
		visionBaseURL, symbol, dlInterval, name)

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	zipPath := filepath.Join(workDir, name+".zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(zf, resp.Body); err != nil {
		zf.Close()
		return nil, err
	}
	if err := zf.Close(); err != nil {
		return nil, err
	}

	extractDir := filepath.Join(workDir, name)
	if err := unzip.Extract(zipPath, extractDir); err != nil {
		return nil, fmt.Errorf("extract %s: %w", zipPath, err)
	}

	return readRawKlines(filepath.Join(extractDir, name+".csv"))
}

// readRawKlines converts the archive's positional kline rows into the
// normalized schema with RFC3339 timestamps.
func readRawKlines(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 7 {
			continue
		}
		// newer archives ship a header row
		if !isDigits(row[0]) {
			continue
		}

		openAt, err := parseArchiveTime(row[0])
		if err != nil {
			return nil, err
		}
		closeAt, err := parseArchiveTime(row[6])
		if err != nil {
			return nil, err
		}

		out = append(out, []string{
			openAt.Format(time.RFC3339),
			row[1], row[2], row[3], row[4], row[5],
			closeAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// parseArchiveTime handles both timestamp precisions the archive has
// used: milliseconds historically, microseconds since 2025.
func parseArchiveTime(s string) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	if n > 1e14 {
		return time.UnixMicro(n).UTC(), nil
	}
	return time.UnixMilli(n).UTC(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
