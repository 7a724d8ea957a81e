package market

import (
	"fmt"
	"time"
)

// Interval is a candle granularity in exchange notation.
type Interval string

const (
	M1  Interval = "1m"
	M5  Interval = "5m"
	M15 Interval = "15m"
	M30 Interval = "30m"
	H1  Interval = "1h"
	H4  Interval = "4h"
	H12 Interval = "12h"
	D1  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	H12: 12 * time.Hour,
	D1:  24 * time.Hour,
}

// Duration returns the wall-clock length of one bar.
func (i Interval) Duration() (time.Duration, error) {
	d, ok := intervalDurations[i]
	if !ok {
		return 0, fmt.Errorf("unknown interval %q", string(i))
	}
	return d, nil
}

// Valid reports whether the interval is a supported granularity.
func (i Interval) Valid() bool {
	_, ok := intervalDurations[i]
	return ok
}
