package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/marginsim/market"
)

// StreamURL is Binance's public websocket endpoint.
const StreamURL = "wss://stream.binance.com:9443"

// KlineEvent is one live candle update. Final is true once the bar has
// closed; a bar arrives many times before that with a moving close.
type KlineEvent struct {
	Symbol   string
	Interval market.Interval
	Candle   market.Candle
	Final    bool
}

// Stream subscribes to kline updates over websocket. Events are
// delivered on a buffered channel which closes when the stream stops,
// either by Close or by a read error.
type Stream struct {
	url    string
	events chan KlineEvent

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	// Err holds the read error that ended the stream, nil after Close.
	err error
}

// NewStream prepares a kline subscription for the given symbols. An
// empty baseURL selects the production endpoint.
func NewStream(baseURL string, interval market.Interval, symbols ...string) (*Stream, error) {
	if baseURL == "" {
		baseURL = StreamURL
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("unknown interval: %s", interval)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}

	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = fmt.Sprintf("%s@kline_%s", strings.ToLower(s), interval)
	}

	return &Stream{
		url:    fmt.Sprintf("%s/stream?streams=%s", baseURL, strings.Join(streams, "/")),
		events: make(chan KlineEvent, 256),
	}, nil
}

// Connect dials the endpoint and starts the read loop.
func (s *Stream) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return fmt.Errorf("stream is closed")
	}
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// Events returns the delivery channel. Closed when the stream ends.
func (s *Stream) Events() <-chan KlineEvent {
	return s.events
}

// Err reports why the event channel closed. Nil after a clean Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close shuts the connection down and closes the event channel.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	defer close(s.events)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = err
				s.closed = true
				conn.Close()
			}
			s.mu.Unlock()
			return
		}

		event, ok, err := parseStreamMessage(data)
		if err != nil || !ok {
			// non-kline frames (subscription acks) are dropped
			continue
		}

		select {
		case s.events <- event:
		default:
			// slow consumer: drop the oldest pending update
			select {
			case <-s.events:
			default:
			}
			s.events <- event
		}
	}
}

// combined stream frames wrap the payload in {"stream": ..., "data": ...}
type streamFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string   `json:"e"`
		Symbol    string   `json:"s"`
		Kline     rawKline `json:"k"`
	} `json:"data"`
}

type rawKline struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Final     bool   `json:"x"`
}

func parseStreamMessage(data []byte) (KlineEvent, bool, error) {
	var frame streamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return KlineEvent{}, false, err
	}
	if frame.Data.EventType != "kline" {
		return KlineEvent{}, false, nil
	}

	k := frame.Data.Kline
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return KlineEvent{}, false, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return KlineEvent{}, false, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return KlineEvent{}, false, err
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return KlineEvent{}, false, err
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return KlineEvent{}, false, err
	}

	return KlineEvent{
		Symbol:   frame.Data.Symbol,
		Interval: market.Interval(k.Interval),
		Final:    k.Final,
		Candle: market.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
			CloseTime: time.UnixMilli(k.CloseTime).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cls,
			Volume:    vol,
		},
	}, true, nil
}
