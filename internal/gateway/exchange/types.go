// Package exchange defines a common abstraction for trading venues so the
// rebalancing core can run against a live exchange or a fake in tests without
// changing the decision logic.
package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRequest describes one limit order submission.
type OrderRequest struct {
	Symbol   string  // pair symbol, e.g. "ETHBTC"
	Side     Side    // BUY or SELL
	Quantity float64 // already lot-quantized
	Price    float64 // limit price in quote units
	ClientID string  // client order id, optional
	DryRun   bool    // route through the validate-only endpoint
}

// OrderAck is the venue's acknowledgement of an accepted order.
type OrderAck struct {
	OrderID int64
	DryRun  bool
}

// OpenOrder mirrors what the venue reports for a resting order.
type OpenOrder struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Age reports how long the order has been resting as of now.
func (o OpenOrder) Age(now time.Time) time.Duration {
	return now.Sub(o.SubmittedAt)
}

// LotStep carries a symbol's LOT_SIZE constraints. Step keeps the venue's
// explicit decimal scale instead of a positionally-parsed string.
type LotStep struct {
	Step   decimal.Decimal
	MinQty decimal.Decimal
	MaxQty decimal.Decimal
}

// Candle is the slice of kline data the backtest consumes.
type Candle struct {
	OpenTime  int64 // Unix ms
	CloseTime int64 // Unix ms
	Close     float64
}
