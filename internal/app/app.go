// Package app wires configuration into running services: the live trading
// loop with its HTTP sidecar, or a one-shot backtest.
package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/devon-brazier/rebalancer.v2/internal/config"
	"github.com/devon-brazier/rebalancer.v2/internal/gateway/binance"
	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
	"github.com/devon-brazier/rebalancer.v2/internal/gateway/notifier"
	"github.com/devon-brazier/rebalancer.v2/internal/logger"
	"github.com/devon-brazier/rebalancer.v2/internal/orders"
	"github.com/devon-brazier/rebalancer.v2/internal/portfolio"
	"github.com/devon-brazier/rebalancer.v2/internal/trader"
	statushttp "github.com/devon-brazier/rebalancer.v2/internal/transport/http"
)

// App is the live-mode application object.
type App struct {
	cfg      *config.Config
	state    *portfolio.State
	svc      *trader.Service
	httpSrv  *statushttp.Server
	notifier notifier.TextNotifier
}

// NewApp builds the live application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	ex, err := buildExchange(cfg)
	if err != nil {
		return nil, err
	}
	state, err := portfolio.Load(cfg.Portfolio.Path, cfg.Portfolio.QuoteSymbol)
	if err != nil {
		return nil, err
	}
	tn := buildNotifier(cfg)
	om := orders.NewManager(ex, cfg.Trading.MaxOrderAge(), cfg.Trading.DryRun, cfg.Orders.StorePath)
	svc := trader.NewService(cfg, state, ex, om, tn)
	httpSrv, err := statushttp.NewServer(cfg.App.HTTPAddr, svc)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, state: state, svc: svc, httpSrv: httpSrv, notifier: tn}, nil
}

// Run initializes the trader and drives the loop plus the HTTP server until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.svc.Init(ctx); err != nil {
		return err
	}
	if a.cfg.Portfolio.WatchFile {
		err := portfolio.Watch(ctx, a.cfg.Portfolio.Path, func(path string) {
			if err := a.notifier.SendText("Portfolio table changed on disk; restart the bot to apply it."); err != nil {
				logger.Warnf("portfolio change notice failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("portfolio watcher: %w", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.httpSrv.Start(ctx)
	})
	group.Go(func() error {
		return a.svc.Run(ctx)
	})
	return group.Wait()
}

func buildExchange(cfg *config.Config) (exchange.Exchange, error) {
	key := os.Getenv("API_KEY")
	secret := os.Getenv("SECRET_KEY")
	return binance.New(binance.Config{
		APIKey:            key,
		SecretKey:         secret,
		RESTBaseURL:       cfg.Exchange.RESTBaseURL,
		HTTPTimeout:       cfg.Exchange.HTTPTimeout(),
		RequestsPerSecond: cfg.Exchange.RequestsPerSecond,
	})
}

func buildNotifier(cfg *config.Config) notifier.TextNotifier {
	tg := cfg.Notify.Telegram
	if tg.Enabled {
		return notifier.NewTelegram(tg.BotToken, tg.ChatID)
	}
	logger.Warnf("telegram disabled, reports go to the log only")
	return notifier.Log{}
}
