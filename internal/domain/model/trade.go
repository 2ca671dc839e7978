package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoCandle is returned when an instrument has no aggregated history yet.
var ErrNoCandle = errors.New("no candle for instrument")

// RawTrade is a single normalized trade from the exchange feed. It lives only
// in the trade buffer until the next aggregation cycle drains it.
type RawTrade struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Candle is an OHLCV summary of all trades buffered for one instrument within
// one aggregation cycle. Immutable once persisted.
type Candle struct {
	Symbol      string          `json:"symbol"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	Open        decimal.Decimal `json:"open"`
	Close       decimal.Decimal `json:"close"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Volume      decimal.Decimal `json:"volume"`
}

// SyntheticTrade is the derived average-price record persisted alongside its
// sibling candle. Its price is the unweighted mean of the window's trade
// prices and its quantity equals the candle volume.
type SyntheticTrade struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// CandlePayload is the wire shape delivered to subscribers, both as push
// updates and as snapshot replies. Numeric fields serialize as decimal
// strings so clients never see binary floating point.
type CandlePayload struct {
	Symbol     string          `json:"symbol"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	ClosePrice decimal.Decimal `json:"close_price"`
	HighPrice  decimal.Decimal `json:"high_price"`
	LowPrice   decimal.Decimal `json:"low_price"`
	Volume     decimal.Decimal `json:"volume"`
}

// Payload converts a candle to its public wire shape.
func (c Candle) Payload() CandlePayload {
	return CandlePayload{
		Symbol:     c.Symbol,
		OpenPrice:  c.Open,
		ClosePrice: c.Close,
		HighPrice:  c.High,
		LowPrice:   c.Low,
		Volume:     c.Volume,
	}
}
