package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devon-brazier/rebalancer.v2/internal/backtest"
	"github.com/devon-brazier/rebalancer.v2/internal/config"
	"github.com/devon-brazier/rebalancer.v2/internal/engine"
	"github.com/devon-brazier/rebalancer.v2/internal/logger"
	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
)

// RunBacktest replays historical klines through the engine, stores the run
// and writes the HTML report. One-shot: returns when the report is on disk.
func RunBacktest(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	ex, err := buildExchange(cfg)
	if err != nil {
		return err
	}
	state, err := portfolio.Load(cfg.Portfolio.Path, cfg.Portfolio.QuoteSymbol)
	if err != nil {
		return err
	}
	steps, err := ex.LotSteps(ctx, state.Symbols())
	if err != nil {
		return err
	}
	stepBySymbol := make(map[string]decimal.Decimal, len(steps))
	for sym, ls := range steps {
		stepBySymbol[sym] = ls.Step
	}
	if err := state.ApplyLotSteps(stepBySymbol); err != nil {
		return err
	}
	state.ApplyBalances(cfg.Backtest.SeedBalances)

	logger.Infof("backtest: loading %s series for %d symbols (limit=%d)",
		cfg.Backtest.Interval, len(state.Assets), cfg.Backtest.Limit)
	series, err := backtest.LoadSeries(ctx, ex, state.Symbols(), cfg.Backtest.Interval, cfg.Backtest.Limit)
	if err != nil {
		return err
	}
	// Baseline is frozen at the first historical point, before any
	// simulated trade.
	state.ApplyPrices(series.Points[0].Prices)
	state.FreezeHoldBaseline()

	runner := backtest.NewRunner(backtest.RunnerConfig{
		Fee:           cfg.Trading.TransactionFee,
		MinOrderValue: cfg.Trading.MinimumOrderValue,
	})
	result, err := runner.Run(state, series)
	if err != nil {
		return err
	}

	last := len(result.Timestamps) - 1
	run := backtest.Run{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now(),
		Interval:       cfg.Backtest.Interval,
		Symbols:        state.Symbols(),
		Fee:            cfg.Trading.TransactionFee,
		MinOrderValue:  cfg.Trading.MinimumOrderValue,
		Points:         len(result.Timestamps),
		Trades:         result.Trades,
		FinalPortfolio: result.Portfolio[last],
		FinalHold:      result.Hold[last],
	}
	if _, ratio, err := engine.ProfitVsHold(run.FinalPortfolio, run.FinalHold); err == nil {
		run.ReturnVsHold = ratio
	} else {
		logger.Warnf("backtest: %v, return vs hold left at zero", err)
	}

	store, err := backtest.NewResultStore(cfg.Backtest.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.InsertRun(ctx, run, result); err != nil {
		return err
	}

	reportPath, err := backtest.WriteReport(cfg.Backtest.ReportDir, run, result)
	if err != nil {
		return err
	}
	logger.Infof("backtest %s done: %d points, %d trades, final=$%.2f hold=$%.2f (%.4f%% vs hold)",
		run.ID, run.Points, run.Trades, run.FinalPortfolio, run.FinalHold, run.ReturnVsHold*100)
	logger.Infof("backtest report written to %s", reportPath)

	tn := buildNotifier(cfg)
	summary := fmt.Sprintf("Backtest %s finished: %d trades over %d points, %.4f%% vs hold. Report: %s",
		run.ID, run.Trades, run.Points, run.ReturnVsHold*100, reportPath)
	if err := tn.SendText(summary); err != nil {
		logger.Warnf("backtest summary notification failed: %v", err)
	}
	return nil
}
