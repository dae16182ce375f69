package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
)

func quoteAndOne(t *testing.T, assetBalance, quoteBalance, assetTarget float64) *portfolio.State {
	t.Helper()
	state, err := portfolio.NewState("BTCUSDT", []*portfolio.Asset{
		{Symbol: "BTCUSDT", Coin: "BTC", TargetWeight: 1 - assetTarget, Balance: quoteBalance, LotStep: decimal.RequireFromString("0.00000001")},
		{Symbol: "ABTC", Coin: "A", TargetWeight: assetTarget, Balance: assetBalance, LotStep: decimal.RequireFromString("1")},
	})
	require.NoError(t, err)
	return state
}

func onePoint(prices map[string]float64) *Series {
	return &Series{Points: []Point{{CloseTime: 1000, Prices: prices}}}
}

func TestRunDeductsFeeFromReceivedSideOnBuy(t *testing.T) {
	// All quote, target fully in A: one buy of 10 units at price 10.
	state := quoteAndOne(t, 0, 100, 1)
	state.ApplyPrices(map[string]float64{"BTCUSDT": 1, "ABTC": 10})
	state.FreezeHoldBaseline()

	runner := NewRunner(RunnerConfig{Fee: 0.01, MinOrderValue: 1})
	result, err := runner.Run(state, onePoint(map[string]float64{"BTCUSDT": 1, "ABTC": 10}))
	require.NoError(t, err)

	require.Equal(t, 1, result.Trades)
	a, _ := state.BySymbol("ABTC")
	quote := state.Quote()
	// Bought 10, received 9.9 after the 1% fee; quote paid the full 100.
	assert.InDelta(t, 9.9, a.Balance, 1e-9)
	assert.InDelta(t, 0, quote.Balance, 1e-9)
	assert.InDelta(t, 99, result.Portfolio[0], 1e-9)
	// Hold never trades, so it never pays the fee.
	assert.InDelta(t, 100, result.Hold[0], 1e-9)
}

func TestRunDeductsFeeFromReceivedSideOnSell(t *testing.T) {
	// All in A, target fully in quote: one sell of 10 units at price 10.
	state := quoteAndOne(t, 10, 0, 0)
	state.ApplyPrices(map[string]float64{"BTCUSDT": 1, "ABTC": 10})
	state.FreezeHoldBaseline()

	runner := NewRunner(RunnerConfig{Fee: 0.01, MinOrderValue: 1})
	result, err := runner.Run(state, onePoint(map[string]float64{"BTCUSDT": 1, "ABTC": 10}))
	require.NoError(t, err)

	require.Equal(t, 1, result.Trades)
	a, _ := state.BySymbol("ABTC")
	quote := state.Quote()
	// Sold all 10; quote receives 99 after the fee.
	assert.InDelta(t, 0, a.Balance, 1e-9)
	assert.InDelta(t, 99, quote.Balance, 1e-9)
	assert.InDelta(t, 99, result.Portfolio[0], 1e-9)
}

func TestRunSkipsTradesInsideDeadZone(t *testing.T) {
	// The only candidate trade is worth $100; a $200 minimum holds it.
	state := quoteAndOne(t, 0, 100, 1)
	state.ApplyPrices(map[string]float64{"BTCUSDT": 1, "ABTC": 10})
	state.FreezeHoldBaseline()

	runner := NewRunner(RunnerConfig{Fee: 0.01, MinOrderValue: 200})
	result, err := runner.Run(state, onePoint(map[string]float64{"BTCUSDT": 1, "ABTC": 10}))
	require.NoError(t, err)

	assert.Zero(t, result.Trades)
	assert.InDelta(t, 100, result.Portfolio[0], 1e-9)
	assert.Zero(t, result.VolumeUSD[0])
}

func TestRunQuantizesBeforeApplying(t *testing.T) {
	// Raw volume is 9.9-ish with a whole-unit lot step; the fill must land
	// on an integer quantity.
	state := quoteAndOne(t, 0, 99, 1)
	state.ApplyPrices(map[string]float64{"BTCUSDT": 1, "ABTC": 10})
	state.FreezeHoldBaseline()

	runner := NewRunner(RunnerConfig{Fee: 0, MinOrderValue: 1})
	_, err := runner.Run(state, onePoint(map[string]float64{"BTCUSDT": 1, "ABTC": 10}))
	require.NoError(t, err)

	a, _ := state.BySymbol("ABTC")
	assert.InDelta(t, 10, a.Balance, 1e-9) // 9.9 rounded to the nearest step
}

func TestRunIsDeterministic(t *testing.T) {
	series := &Series{Points: []Point{
		{CloseTime: 1000, Prices: map[string]float64{"BTCUSDT": 1, "ABTC": 10}},
		{CloseTime: 2000, Prices: map[string]float64{"BTCUSDT": 1, "ABTC": 14}},
		{CloseTime: 3000, Prices: map[string]float64{"BTCUSDT": 1, "ABTC": 7}},
		{CloseTime: 4000, Prices: map[string]float64{"BTCUSDT": 1, "ABTC": 11}},
	}}
	run := func() *Result {
		state := quoteAndOne(t, 5, 50, 0.5)
		state.ApplyPrices(series.Points[0].Prices)
		state.FreezeHoldBaseline()
		runner := NewRunner(RunnerConfig{Fee: 0.001, MinOrderValue: 5})
		result, err := runner.Run(state, series)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	// Bit-identical, not merely close.
	assert.Equal(t, first, second)
	assert.Len(t, first.Timestamps, len(series.Points))
}

func TestRunHoldCurveTracksFrozenBalances(t *testing.T) {
	state := quoteAndOne(t, 5, 50, 0.5)
	state.ApplyPrices(map[string]float64{"BTCUSDT": 1, "ABTC": 10})
	state.FreezeHoldBaseline()

	series := &Series{Points: []Point{
		{CloseTime: 1000, Prices: map[string]float64{"BTCUSDT": 1, "ABTC": 10}},
		{CloseTime: 2000, Prices: map[string]float64{"BTCUSDT": 1, "ABTC": 20}},
	}}
	runner := NewRunner(RunnerConfig{Fee: 0, MinOrderValue: 1})
	result, err := runner.Run(state, series)
	require.NoError(t, err)

	// Hold is 5 units of A plus 50 quote, repriced each point.
	assert.InDelta(t, 100, result.Hold[0], 1e-9)
	assert.InDelta(t, 150, result.Hold[1], 1e-9)
}
