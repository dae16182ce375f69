// Package engine turns a balance/price snapshot into per-asset trade
// decisions against the portfolio's target weights. The engine is stateless;
// it owns nothing across calls.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
)

type Decision int

const (
	Hold Decision = iota
	Buy
	Sell
)

func (d Decision) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// ErrZeroPortfolio is returned when the portfolio USD total is zero, where
// actual weights are undefined.
var ErrZeroPortfolio = errors.New("portfolio total value is zero")

// ErrZeroBaseline marks an undefined profit ratio (hold baseline value is
// zero). Callers skip the affected report instead of propagating a NaN.
var ErrZeroBaseline = errors.New("hold baseline value is zero")

// MarketDataError signals a missing or non-positive price. The cycle that
// hits it is skipped and reported, never retried with stale data.
type MarketDataError struct {
	Symbol string
	Price  float64
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data unusable for %s: price=%v", e.Symbol, e.Price)
}

// Line is the derived view of one asset within a single snapshot.
type Line struct {
	Symbol        string
	USDPrice      float64
	USDValue      float64
	HoldUSDValue  float64
	WeightActual  float64
	WeightDiff    float64 // target - actual
	TradeVolume   float64 // native units, signed; positive buys
	TradeValueUSD float64 // signed USD value of TradeVolume
	Decision      Decision
}

// Snapshot is the ephemeral result of one planning pass. It is rebuilt from
// scratch every tick and discarded once its decisions are consumed.
type Snapshot struct {
	At               time.Time
	Lines            []Line
	TotalUSD         float64
	HoldTotalUSD     float64
	MinOrderValueUSD float64
}

// Engine computes rebalance plans. MinOrderValue is the exchange-wide minimum
// order size expressed in quote units (e.g. BTC).
type Engine struct {
	MinOrderValue float64
}

func New(minOrderValue float64) *Engine {
	return &Engine{MinOrderValue: minOrderValue}
}

// Plan derives weights, trade volumes and decisions for every asset. The
// quote-reference asset absorbs counter-value and always holds.
func (e *Engine) Plan(state *portfolio.State, now time.Time) (*Snapshot, error) {
	quote := state.Quote()
	for _, a := range state.Assets {
		if a.Price <= 0 {
			return nil, &MarketDataError{Symbol: a.Symbol, Price: a.Price}
		}
	}
	quoteUSD := quote.Price

	snap := &Snapshot{
		At:               now,
		Lines:            make([]Line, 0, len(state.Assets)),
		MinOrderValueUSD: e.MinOrderValue * quoteUSD,
	}
	for _, a := range state.Assets {
		usdPrice := a.Price * quoteUSD
		if a.Symbol == state.QuoteSymbol {
			usdPrice = a.Price
		}
		line := Line{
			Symbol:       a.Symbol,
			USDPrice:     usdPrice,
			USDValue:     a.Balance * usdPrice,
			HoldUSDValue: a.HoldBalance * usdPrice,
		}
		snap.TotalUSD += line.USDValue
		snap.HoldTotalUSD += line.HoldUSDValue
		snap.Lines = append(snap.Lines, line)
	}
	if snap.TotalUSD <= 0 {
		return nil, ErrZeroPortfolio
	}

	for i := range snap.Lines {
		line := &snap.Lines[i]
		asset, _ := state.BySymbol(line.Symbol)
		line.WeightActual = line.USDValue / snap.TotalUSD
		line.WeightDiff = asset.TargetWeight - line.WeightActual
		line.TradeVolume = line.WeightDiff * snap.TotalUSD / line.USDPrice
		line.TradeValueUSD = line.TradeVolume * line.USDPrice
		line.Decision = e.decide(line, state.QuoteSymbol, snap.MinOrderValueUSD)
	}
	return snap, nil
}

// decide applies the dead-zone rule: trades below the minimum order value in
// either direction hold, avoiding order-size violations and churn.
func (e *Engine) decide(line *Line, quoteSymbol string, minOrderUSD float64) Decision {
	if line.Symbol == quoteSymbol {
		return Hold
	}
	switch {
	case line.TradeValueUSD >= minOrderUSD:
		return Buy
	case line.TradeValueUSD <= -minOrderUSD:
		return Sell
	default:
		return Hold
	}
}

// ExecutionOrder returns the lines sorted for submission: the largest excess
// (most negative weight diff) first, so sells free quote liquidity before
// buys consume it. The sort is stable so equal diffs keep portfolio order.
func (s *Snapshot) ExecutionOrder() []Line {
	out := make([]Line, len(s.Lines))
	copy(out, s.Lines)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WeightDiff < out[j].WeightDiff
	})
	return out
}

// Actionable filters the execution ordering down to Buy/Sell lines.
func (s *Snapshot) Actionable() []Line {
	out := make([]Line, 0, len(s.Lines))
	for _, line := range s.ExecutionOrder() {
		if line.Decision != Hold {
			out = append(out, line)
		}
	}
	return out
}

// ProfitVsHold reports absolute and relative performance against the frozen
// buy-and-hold baseline. A zero baseline is an explicit error, not a NaN.
func ProfitVsHold(totalUSD, holdTotalUSD float64) (abs, ratio float64, err error) {
	if holdTotalUSD == 0 {
		return 0, 0, ErrZeroBaseline
	}
	return totalUSD - holdTotalUSD, totalUSD/holdTotalUSD - 1, nil
}
