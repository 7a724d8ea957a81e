package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marginsim/market"
)

func klineJSON(openMs int64, o, h, l, c, v float64, closeMs int64) string {
	return fmt.Sprintf(`[%d,"%v","%v","%v","%v","%v",%d,"0",0,"0","0","0"]`,
		openMs, o, h, l, c, v, closeMs)
}

func TestCandlesSinglePage(t *testing.T) {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		gotQuery = map[string]string{
			"symbol":   r.URL.Query().Get("symbol"),
			"interval": r.URL.Query().Get("interval"),
			"limit":    r.URL.Query().Get("limit"),
		}
		fmt.Fprintf(w, "[%s,%s]",
			klineJSON(open.UnixMilli(), 100, 105, 99, 104, 12.5, open.Add(24*time.Hour).UnixMilli()-1),
			klineJSON(open.AddDate(0, 0, 1).UnixMilli(), 104, 110, 103, 108, 8, open.Add(48*time.Hour).UnixMilli()-1),
		)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.Candles(context.Background(), "BTCUSDT", market.D1, open, open.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "BTCUSDT", gotQuery["symbol"])
	assert.Equal(t, "1d", gotQuery["interval"])
	assert.Equal(t, "1000", gotQuery["limit"])

	assert.Equal(t, open, got[0].OpenTime)
	assert.Equal(t, 100.0, got[0].Open)
	assert.Equal(t, 104.0, got[0].Close)
	assert.Equal(t, 12.5, got[0].Volume)
	assert.Equal(t, 108.0, got[1].Close)
}

func TestCandlesPaginates(t *testing.T) {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	total := maxKlinesPerRequest + 5

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		startMs, err := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		require.NoError(t, err)

		from := int(time.UnixMilli(startMs).Sub(open) / time.Minute)
		w.Write([]byte("["))
		wrote := 0
		for i := from; i < total && wrote < maxKlinesPerRequest; i++ {
			if wrote > 0 {
				w.Write([]byte(","))
			}
			barOpen := open.Add(time.Duration(i) * time.Minute)
			fmt.Fprint(w, klineJSON(barOpen.UnixMilli(), 1, 1, 1, 1, 1, barOpen.Add(time.Minute).UnixMilli()-1))
			wrote++
		}
		w.Write([]byte("]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.Candles(context.Background(), "ETHUSDT", market.M1,
		open, open.Add(time.Duration(total)*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	require.Len(t, got, total)
	assert.Equal(t, open, got[0].OpenTime)
	assert.Equal(t, open.Add(time.Duration(total-1)*time.Minute), got[total-1].OpenTime)
}

func TestCandlesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Candles(context.Background(), "NOPE", market.D1,
		time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "418")
	assert.Contains(t, err.Error(), "Invalid symbol")
}

func TestCandlesValidation(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")

	_, err := c.Candles(context.Background(), "", market.D1, time.Time{}, time.Now())
	assert.Error(t, err)

	_, err = c.Candles(context.Background(), "BTCUSDT", "2d", time.Time{}, time.Now())
	assert.Error(t, err)
}

func TestParseStreamMessage(t *testing.T) {
	data := []byte(`{
		"stream": "btcusdt@kline_1m",
		"data": {
			"e": "kline", "s": "BTCUSDT",
			"k": {
				"t": 1704067200000, "T": 1704067259999, "i": "1m",
				"o": "100.0", "h": "101.5", "l": "99.5", "c": "101.0",
				"v": "3.25", "x": true
			}
		}
	}`)

	event, ok, err := parseStreamMessage(data)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "BTCUSDT", event.Symbol)
	assert.Equal(t, market.M1, event.Interval)
	assert.True(t, event.Final)
	assert.Equal(t, 100.0, event.Candle.Open)
	assert.Equal(t, 101.0, event.Candle.Close)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), event.Candle.OpenTime)

	_, ok, err = parseStreamMessage([]byte(`{"result":null,"id":1}`))
	require.NoError(t, err)
	assert.False(t, ok, "subscription acks are not kline events")
}
