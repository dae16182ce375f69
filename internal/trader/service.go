// Package trader wires the live control loop: rebalance execution, open-order
// maintenance and operator reporting on independent periods.
package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devon-brazier/rebalancer.v2/internal/config"
	"github.com/devon-brazier/rebalancer.v2/internal/engine"
	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
	"github.com/devon-brazier/rebalancer.v2/internal/gateway/notifier"
	"github.com/devon-brazier/rebalancer.v2/internal/logger"
	"github.com/devon-brazier/rebalancer.v2/internal/lot"
	"github.com/devon-brazier/rebalancer.v2/internal/orders"
	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
	"github.com/devon-brazier/rebalancer.v2/internal/scheduler"
)

// Counters accumulate trade activity between reports. They live on the
// service, are written only by loop tasks and reset only by the report task.
type Counters struct {
	Trades    int
	VolumeUSD float64
}

// Status is the read-only view exposed to the HTTP layer.
type Status struct {
	At           time.Time                `json:"at"`
	TotalUSD     float64                  `json:"total_usd"`
	HoldTotalUSD float64                  `json:"hold_total_usd"`
	Weights      map[string]float64       `json:"weights"`
	Counters     Counters                 `json:"counters"`
	StartedAt    time.Time                `json:"started_at"`
	Rebalances   int                      `json:"rebalances"`
	OpenOrders   []exchange.OpenOrder     `json:"open_orders"`
}

// Service owns PortfolioState and the tick cadence. All mutation happens on
// the single scheduler goroutine; the mutex only guards the status copy the
// HTTP server reads.
type Service struct {
	cfg      *config.Config
	state    *portfolio.State
	ex       exchange.Exchange
	eng      *engine.Engine
	orders   *orders.Manager
	notifier notifier.TextNotifier

	startedAt  time.Time
	counters   Counters
	rebalances int

	statusMu sync.RWMutex
	status   Status
}

func NewService(cfg *config.Config, state *portfolio.State, ex exchange.Exchange, om *orders.Manager, tn notifier.TextNotifier) *Service {
	if tn == nil {
		tn = notifier.Noop{}
	}
	return &Service{
		cfg:      cfg,
		state:    state,
		ex:       ex,
		eng:      engine.New(cfg.Trading.MinimumOrderValue),
		orders:   om,
		notifier: tn,
	}
}

// Init fetches exchange metadata, takes the first snapshot and freezes the
// buy-and-hold baseline against which all later profit is measured.
func (s *Service) Init(ctx context.Context) error {
	steps, err := s.ex.LotSteps(ctx, s.state.Symbols())
	if err != nil {
		return fmt.Errorf("trader init: %w", err)
	}
	stepBySymbol := make(map[string]decimal.Decimal, len(steps))
	for sym, ls := range steps {
		stepBySymbol[sym] = ls.Step
	}
	if err := s.state.ApplyLotSteps(stepBySymbol); err != nil {
		return fmt.Errorf("trader init: %w", err)
	}
	if err := s.refresh(ctx); err != nil {
		return fmt.Errorf("trader init: %w", err)
	}
	s.state.FreezeHoldBaseline()
	s.startedAt = time.Now()
	logger.Infof("trader: baseline frozen across %d assets", len(s.state.Assets))
	return nil
}

// Run executes the cooperative loop until ctx is cancelled. Registration
// order fixes the tie-break when periods coincide: rebalance, report,
// order check — the same precedence the report figures assume.
func (s *Service) Run(ctx context.Context) error {
	loop, err := scheduler.NewLoop(s.cfg.Schedule.Tick())
	if err != nil {
		return err
	}
	if err := loop.Add("rebalance", s.cfg.Schedule.RebalanceTicks, s.rebalanceTask); err != nil {
		return err
	}
	if err := loop.Add("report", s.cfg.Schedule.ReportTicks, s.reportTask); err != nil {
		return err
	}
	if err := loop.Add("order-check", s.cfg.Schedule.OrderCheckTicks, s.orderCheckTask); err != nil {
		return err
	}
	return loop.Run(ctx)
}

func (s *Service) refresh(ctx context.Context) error {
	balances, err := s.ex.Balances(ctx)
	if err != nil {
		return fmt.Errorf("fetching balances: %w", err)
	}
	prices, err := s.ex.Prices(ctx)
	if err != nil {
		return fmt.Errorf("fetching prices: %w", err)
	}
	s.state.ApplyBalances(balances)
	s.state.ApplyPrices(prices)
	return nil
}

// rebalanceTask runs one full cycle: snapshot, plan, quantize, submit.
// Market-data failures skip the cycle; order rejections are logged and the
// loop continues.
func (s *Service) rebalanceTask(ctx context.Context) {
	started := time.Now()
	if err := s.refresh(ctx); err != nil {
		logger.Errorf("rebalance: snapshot failed, skipping cycle: %v", err)
		return
	}
	snap, err := s.eng.Plan(s.state, time.Now())
	if err != nil {
		var mde *engine.MarketDataError
		if errors.As(err, &mde) {
			logger.Warnf("rebalance: %v, skipping cycle", mde)
		} else {
			logger.Errorf("rebalance: planning failed, skipping cycle: %v", err)
		}
		return
	}
	for _, line := range snap.Actionable() {
		asset, _ := s.state.BySymbol(line.Symbol)
		qty := lot.Quantize(line.TradeVolume, asset.LotStep)
		if qty == 0 {
			continue
		}
		side := exchange.SideBuy
		if line.Decision == engine.Sell {
			side = exchange.SideSell
			qty = -qty
		}
		if err := s.orders.Submit(ctx, line.Symbol, side, qty, asset.Price); err != nil {
			logger.Errorf("rebalance: %v", err)
			continue
		}
		s.counters.Trades++
		s.counters.VolumeUSD += abs(line.TradeValueUSD)
	}
	s.rebalances++
	s.publishStatus(snap)
	logger.Infof("rebalance: cycle %d done in %s (total=$%.2f hold=$%.2f)",
		s.rebalances, time.Since(started).Truncate(time.Millisecond), snap.TotalUSD, snap.HoldTotalUSD)
}

func (s *Service) orderCheckTask(ctx context.Context) {
	started := time.Now()
	if err := s.orders.Check(ctx, s.state.TradeSymbols()); err != nil {
		logger.Errorf("order check failed: %v", err)
		return
	}
	logger.Infof("order check done in %s, %d order(s) open",
		time.Since(started).Truncate(time.Millisecond), len(s.orders.Open()))
}

func (s *Service) reportTask(ctx context.Context) {
	snap, err := s.eng.Plan(s.state, time.Now())
	if err != nil {
		logger.Warnf("report: no usable snapshot, skipping: %v", err)
		return
	}
	msg, err := s.buildReport(snap)
	if err != nil {
		if errors.Is(err, engine.ErrZeroBaseline) {
			logger.Warnf("report: hold baseline is zero, profit undefined, skipping report")
			return
		}
		logger.Errorf("report: %v", err)
		return
	}
	if err := s.notifier.SendText(msg); err != nil {
		logger.Errorf("report delivery failed: %v", err)
	}
	// Counters are "since last report"; reset regardless of delivery.
	s.counters = Counters{}
}

func (s *Service) publishStatus(snap *engine.Snapshot) {
	weights := make(map[string]float64, len(snap.Lines))
	for _, line := range snap.Lines {
		weights[line.Symbol] = line.WeightActual
	}
	s.statusMu.Lock()
	s.status = Status{
		At:           snap.At,
		TotalUSD:     snap.TotalUSD,
		HoldTotalUSD: snap.HoldTotalUSD,
		Weights:      weights,
		Counters:     s.counters,
		StartedAt:    s.startedAt,
		Rebalances:   s.rebalances,
		OpenOrders:   s.orders.Open(),
	}
	s.statusMu.Unlock()
}

// Status returns the last published snapshot view.
func (s *Service) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
