package journal

import "time"

// TradeRecord is one executed ledger operation.
type TradeRecord struct {
	TradeID  string
	Time     time.Time
	Symbol   string
	Op       string
	Quantity float64
	Price    float64
}

// ValuationRecord mirrors one portfolio snapshot.
type ValuationRecord struct {
	Time           time.Time
	TotalValue     float64
	LongExposure   float64
	ShortExposure  float64
	GrossExposure  float64
	NetExposure    float64
	LongShortRatio float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordValuation(ValuationRecord) error
	Close() error
}
