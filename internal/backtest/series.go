// Package backtest replays historical price series through the rebalance
// engine with simulated fills, producing a portfolio-vs-hold equity curve.
package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
	"github.com/devon-brazier/rebalancer.v2/internal/logger"
)

// Point carries one timestamp's close price for every portfolio symbol.
type Point struct {
	CloseTime int64 // Unix ms
	Prices    map[string]float64
}

// Series is an ordered, immutable historical price sequence. It is consumed
// strictly in order and never mutated after load.
type Series struct {
	Points []Point
}

// LoadSeries fetches klines for every symbol and aligns them on close time.
// Timestamps missing for any symbol are dropped so every point is complete.
func LoadSeries(ctx context.Context, ex exchange.Exchange, symbols []string, interval string, limit int) (*Series, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("backtest: no symbols to load")
	}
	byTime := make(map[int64]map[string]float64)
	for _, symbol := range symbols {
		candles, err := ex.Klines(ctx, symbol, interval, limit)
		if err != nil {
			return nil, fmt.Errorf("backtest: loading %s: %w", symbol, err)
		}
		for _, c := range candles {
			row, ok := byTime[c.CloseTime]
			if !ok {
				row = make(map[string]float64, len(symbols))
				byTime[c.CloseTime] = row
			}
			row[symbol] = c.Close
		}
	}
	points := make([]Point, 0, len(byTime))
	dropped := 0
	for ts, prices := range byTime {
		if len(prices) != len(symbols) {
			dropped++
			continue
		}
		points = append(points, Point{CloseTime: ts, Prices: prices})
	}
	if dropped > 0 {
		logger.Warnf("backtest: dropped %d timestamp(s) not covered by every symbol", dropped)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("backtest: no aligned timestamps across %d symbols", len(symbols))
	}
	sort.Slice(points, func(i, j int) bool { return points[i].CloseTime < points[j].CloseTime })
	return &Series{Points: points}, nil
}
