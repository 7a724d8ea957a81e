package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/marginsim/market"
)

const (
	// BaseURL is Binance's public spot market data endpoint.
	BaseURL = "https://api.binance.com"

	// maxKlinesPerRequest is the API's page size ceiling.
	maxKlinesPerRequest = 1000
)

// Client fetches historical klines from the Binance REST API. Market
// data endpoints need no credentials. The zero-value-ish NewClient
// client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Binance market data client. An empty baseURL
// selects the production endpoint; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Candles fetches the [start, end) kline range for one symbol, paging
// through the API until the range is covered. Implements the price
// source contract used by the backtest loop.
func (c *Client) Candles(ctx context.Context, symbol string, interval market.Interval, start, end time.Time) ([]market.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("unknown interval: %s", interval)
	}

	step, err := interval.Duration()
	if err != nil {
		return nil, err
	}

	var candles []market.Candle
	cursor := start

	for cursor.Before(end) {
		page, err := c.klinesPage(ctx, symbol, interval, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		candles = append(candles, page...)

		// Next page starts one interval past the last open.
		next := page[len(page)-1].OpenTime.Add(step)
		if !next.After(cursor) {
			break
		}
		cursor = next

		if len(page) < maxKlinesPerRequest {
			break
		}
	}

	return candles, nil
}

func (c *Client) klinesPage(ctx context.Context, symbol string, interval market.Interval, start, end time.Time) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(interval))
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli()-1, 10))
	params.Set("limit", strconv.Itoa(maxKlinesPerRequest))

	apiURL := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	// Each kline is a positional array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, k := range raw {
		candle, err := parseKline(k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseKline(k []json.RawMessage) (market.Candle, error) {
	if len(k) < 7 {
		return market.Candle{}, fmt.Errorf("kline has %d fields, want at least 7", len(k))
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(k[0], &openMs); err != nil {
		return market.Candle{}, fmt.Errorf("kline open time: %w", err)
	}
	if err := json.Unmarshal(k[6], &closeMs); err != nil {
		return market.Candle{}, fmt.Errorf("kline close time: %w", err)
	}

	// Prices and volume arrive as JSON strings.
	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(k[i], &s); err != nil {
			return market.Candle{}, fmt.Errorf("kline field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("kline field %d %q: %w", i, s, err)
		}
		vals[i-1] = v
	}

	return market.Candle{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		CloseTime: time.UnixMilli(closeMs).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
