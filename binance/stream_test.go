package binance

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marginsim/market"
)

func klineFrame(symbol, interval, close string, final bool) string {
	finalStr := "false"
	if final {
		finalStr = "true"
	}
	return `{
		"stream": "` + strings.ToLower(symbol) + `@kline_` + interval + `",
		"data": {
			"e": "kline", "s": "` + symbol + `",
			"k": {
				"t": 1704067200000, "T": 1704067259999, "i": "` + interval + `",
				"o": "100.0", "h": "101.5", "l": "99.5", "c": "` + close + `",
				"v": "3.25", "x": ` + finalStr + `
			}
		}
	}`
}

func wsBaseURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamDeliversKlines(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream", r.URL.Path)
		assert.Contains(t, r.URL.RawQuery, "btcusdt@kline_1m")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// subscription ack, then an in-progress bar, then the closed bar
		conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		conn.WriteMessage(websocket.TextMessage, []byte(klineFrame("BTCUSDT", "1m", "100.5", false)))
		conn.WriteMessage(websocket.TextMessage, []byte(klineFrame("BTCUSDT", "1m", "101.0", true)))
	}))
	defer srv.Close()

	s, err := NewStream(wsBaseURL(srv), market.M1, "BTCUSDT")
	require.NoError(t, err)
	require.NoError(t, s.Connect())
	defer s.Close()

	var events []KlineEvent
	for ev := range s.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 2, "ack frames must not surface as events")

	assert.Equal(t, "BTCUSDT", events[0].Symbol)
	assert.Equal(t, market.M1, events[0].Interval)
	assert.False(t, events[0].Final)
	assert.Equal(t, 100.5, events[0].Candle.Close)

	assert.True(t, events[1].Final)
	assert.Equal(t, 101.0, events[1].Candle.Close)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), events[1].Candle.OpenTime)

	// the server hung up, so the stream ended with a read error
	assert.Error(t, s.Err())
}

func TestStreamCloseIsClean(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s, err := NewStream(wsBaseURL(srv), market.M1, "ETHUSDT")
	require.NoError(t, err)
	require.NoError(t, s.Connect())

	require.NoError(t, s.Close())

	// channel closes without an error after an explicit Close
	for range s.Events() {
	}
	assert.NoError(t, s.Err())

	// Close is idempotent
	assert.NoError(t, s.Close())
}

func TestStreamValidation(t *testing.T) {
	_, err := NewStream("", "2d", "BTCUSDT")
	assert.Error(t, err)

	_, err = NewStream("", market.M1)
	assert.Error(t, err)
}

func TestStreamSubscriptionURL(t *testing.T) {
	s, err := NewStream("wss://example.test", market.H1, "BTCUSDT", "ethusdt")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.test/stream?streams=btcusdt@kline_1h/ethusdt@kline_1h", s.url)
}
