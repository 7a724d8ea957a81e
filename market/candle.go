package market

import "time"

// Candle represents one OHLCV bar. OpenTime and CloseTime bound the
// interval; Close is the price used for marks during replay.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
