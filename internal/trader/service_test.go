package trader

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devon-brazier/rebalancer.v2/internal/config"
	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
	"github.com/devon-brazier/rebalancer.v2/internal/orders"
	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
)

type fakeExchange struct {
	balances map[string]float64
	prices   map[string]float64
	steps    map[string]exchange.LotStep
	placed   []exchange.OrderRequest
}

func (f *fakeExchange) Name() string { return "fake" }

func (f *fakeExchange) Balances(context.Context) (map[string]float64, error) {
	return f.balances, nil
}

func (f *fakeExchange) Prices(context.Context) (map[string]float64, error) {
	return f.prices, nil
}

func (f *fakeExchange) LotSteps(context.Context, []string) (map[string]exchange.LotStep, error) {
	return f.steps, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req exchange.OrderRequest) (exchange.OrderAck, error) {
	f.placed = append(f.placed, req)
	return exchange.OrderAck{OrderID: int64(len(f.placed))}, nil
}

func (f *fakeExchange) OpenOrders(context.Context, string) ([]exchange.OpenOrder, error) {
	return nil, nil
}

func (f *fakeExchange) CancelOrder(context.Context, string, int64) error { return nil }

func (f *fakeExchange) Klines(context.Context, string, string, int) ([]exchange.Candle, error) {
	return nil, nil
}

type captureNotifier struct {
	messages []string
}

func (c *captureNotifier) SendText(text string) error {
	c.messages = append(c.messages, text)
	return nil
}

func newTestService(t *testing.T, ex *fakeExchange, assetTarget float64) (*Service, *captureNotifier) {
	t.Helper()
	state, err := portfolio.NewState("BTCUSDT", []*portfolio.Asset{
		{Symbol: "BTCUSDT", Coin: "BTC", TargetWeight: 1 - assetTarget},
		{Symbol: "ABTC", Coin: "A", TargetWeight: assetTarget},
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Trading: config.TradingConfig{MinimumOrderValue: 1, MaxOrderAgeSecs: 60},
	}
	om := orders.NewManager(ex, time.Minute, false, "")
	tn := &captureNotifier{}
	return NewService(cfg, state, ex, om, tn), tn
}

func wholeUnitSteps() map[string]exchange.LotStep {
	one := decimal.RequireFromString("1")
	tiny := decimal.RequireFromString("0.00000001")
	return map[string]exchange.LotStep{
		"BTCUSDT": {Step: tiny},
		"ABTC":    {Step: one},
	}
}

func TestInitFreezesHoldBaseline(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 100, "A": 2},
		prices:   map[string]float64{"BTCUSDT": 1, "ABTC": 10},
		steps:    wholeUnitSteps(),
	}
	s, _ := newTestService(t, ex, 1)
	require.NoError(t, s.Init(context.Background()))

	a, _ := s.state.BySymbol("ABTC")
	assert.Equal(t, 2.0, a.HoldBalance)
	assert.Equal(t, "1", a.LotStep.String())
}

func TestRebalanceTaskSubmitsQuantizedBuy(t *testing.T) {
	// All quote, target fully in A at price 10: one buy of 10 whole units.
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 100, "A": 0},
		prices:   map[string]float64{"BTCUSDT": 1, "ABTC": 10},
		steps:    wholeUnitSteps(),
	}
	s, _ := newTestService(t, ex, 1)
	require.NoError(t, s.Init(context.Background()))

	s.rebalanceTask(context.Background())

	require.Len(t, ex.placed, 1)
	req := ex.placed[0]
	assert.Equal(t, "ABTC", req.Symbol)
	assert.Equal(t, exchange.SideBuy, req.Side)
	assert.Equal(t, 10.0, req.Quantity)
	assert.Equal(t, 10.0, req.Price)
	assert.Equal(t, 1, s.counters.Trades)
	assert.InDelta(t, 100, s.counters.VolumeUSD, 1e-9)
}

func TestRebalanceTaskSubmitsPositiveSellQuantity(t *testing.T) {
	// All in A, target fully quote: the sell goes out with a positive size.
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 0, "A": 10},
		prices:   map[string]float64{"BTCUSDT": 1, "ABTC": 10},
		steps:    wholeUnitSteps(),
	}
	s, _ := newTestService(t, ex, 0)
	require.NoError(t, s.Init(context.Background()))

	s.rebalanceTask(context.Background())

	require.Len(t, ex.placed, 1)
	assert.Equal(t, exchange.SideSell, ex.placed[0].Side)
	assert.Equal(t, 10.0, ex.placed[0].Quantity)
}

func TestRebalanceTaskSkipsCycleOnBadMarketData(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 100, "A": 0},
		prices:   map[string]float64{"BTCUSDT": 1}, // ABTC price missing
		steps:    wholeUnitSteps(),
	}
	s, _ := newTestService(t, ex, 1)
	s.state.ApplyLotSteps(map[string]decimal.Decimal{
		"BTCUSDT": decimal.RequireFromString("0.00000001"),
		"ABTC":    decimal.RequireFromString("1"),
	})

	s.rebalanceTask(context.Background())

	assert.Empty(t, ex.placed)
	assert.Zero(t, s.counters.Trades)
}

func TestReportTaskSendsAndResetsCounters(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 100, "A": 0},
		prices:   map[string]float64{"BTCUSDT": 1, "ABTC": 10},
		steps:    wholeUnitSteps(),
	}
	s, tn := newTestService(t, ex, 1)
	require.NoError(t, s.Init(context.Background()))
	s.counters = Counters{Trades: 3, VolumeUSD: 42}

	s.reportTask(context.Background())

	require.Len(t, tn.messages, 1)
	assert.Contains(t, tn.messages[0], "Trades since last report: 3")
	assert.Contains(t, tn.messages[0], "Profit vs hold")
	assert.Equal(t, Counters{}, s.counters)
}

func TestReportTaskSkipsOnZeroBaseline(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 100, "A": 0},
		prices:   map[string]float64{"BTCUSDT": 1, "ABTC": 10},
		steps:    wholeUnitSteps(),
	}
	s, tn := newTestService(t, ex, 1)
	require.NoError(t, s.Init(context.Background()))
	// Wipe the baseline: profit against hold is undefined.
	for _, a := range s.state.Assets {
		a.HoldBalance = 0
	}

	s.reportTask(context.Background())
	assert.Empty(t, tn.messages)
}

func TestStatusPublishedAfterRebalance(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 100, "A": 0},
		prices:   map[string]float64{"BTCUSDT": 1, "ABTC": 10},
		steps:    wholeUnitSteps(),
	}
	s, _ := newTestService(t, ex, 1)
	require.NoError(t, s.Init(context.Background()))

	s.rebalanceTask(context.Background())

	st := s.Status()
	assert.Equal(t, 1, st.Rebalances)
	assert.InDelta(t, 100, st.TotalUSD, 1e-9)
	assert.InDelta(t, 1, st.Weights["BTCUSDT"]+st.Weights["ABTC"], 1e-9)
}
