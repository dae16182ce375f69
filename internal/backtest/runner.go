package backtest

import (
	"fmt"
	"time"

	"github.com/devon-brazier/rebalancer.v2/internal/engine"
	"github.com/devon-brazier/rebalancer.v2/internal/lot"
	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
)

// RunnerConfig holds the simulation knobs.
type RunnerConfig struct {
	Fee           float64 // flat fraction, deducted from the received side
	MinOrderValue float64 // in quote units, same constant the live engine uses
}

// Result is the replayed equity curve. Identical input series produce
// bit-identical results.
type Result struct {
	Timestamps []int64
	Portfolio  []float64
	Hold       []float64
	VolumeUSD  []float64 // cumulative traded volume per point
	Trades     int
}

// Runner drives the engine over a Series with no order submission: trade
// volumes are quantized and applied directly to simulated balances.
type Runner struct {
	cfg RunnerConfig
	eng *engine.Engine
}

func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{cfg: cfg, eng: engine.New(cfg.MinOrderValue)}
}

// Run replays the series in order. The hold baseline must be frozen on the
// state before the first point.
func (r *Runner) Run(state *portfolio.State, series *Series) (*Result, error) {
	result := &Result{
		Timestamps: make([]int64, 0, len(series.Points)),
		Portfolio:  make([]float64, 0, len(series.Points)),
		Hold:       make([]float64, 0, len(series.Points)),
		VolumeUSD:  make([]float64, 0, len(series.Points)),
	}
	volumeUSD := 0.0
	for _, point := range series.Points {
		state.ApplyPrices(point.Prices)
		snap, err := r.eng.Plan(state, time.UnixMilli(point.CloseTime))
		if err != nil {
			return nil, fmt.Errorf("backtest at t=%d: %w", point.CloseTime, err)
		}
		for _, line := range snap.Actionable() {
			traded := r.apply(state, line)
			if traded {
				result.Trades++
				volumeUSD += absf(line.TradeValueUSD)
			}
		}
		// Totals after fills, same granularity the live path would see.
		final, err := r.eng.Plan(state, time.UnixMilli(point.CloseTime))
		if err != nil {
			return nil, fmt.Errorf("backtest at t=%d: %w", point.CloseTime, err)
		}
		result.Timestamps = append(result.Timestamps, point.CloseTime)
		result.Portfolio = append(result.Portfolio, final.TotalUSD)
		result.Hold = append(result.Hold, final.HoldTotalUSD)
		result.VolumeUSD = append(result.VolumeUSD, volumeUSD)
	}
	return result, nil
}

// apply executes one simulated fill: full quantity or nothing, fee deducted
// from the received side, counter-value absorbed by the quote asset.
func (r *Runner) apply(state *portfolio.State, line engine.Line) bool {
	asset, _ := state.BySymbol(line.Symbol)
	quote := state.Quote()
	qty := lot.Quantize(line.TradeVolume, asset.LotStep)
	if qty == 0 {
		return false
	}
	quoteValue := qty * asset.Price // in quote units, signed
	if qty > 0 {
		asset.Balance += qty * (1 - r.cfg.Fee)
		quote.Balance -= quoteValue
	} else {
		asset.Balance += qty
		quote.Balance += -quoteValue * (1 - r.cfg.Fee)
	}
	return true
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
