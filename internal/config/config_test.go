package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: prod\n"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9992", cfg.App.HTTPAddr)
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.Equal(t, 15*time.Second, cfg.Exchange.HTTPTimeout())
	assert.Equal(t, 5.0, cfg.Exchange.RequestsPerSecond)
	assert.Equal(t, "BTCUSDT", cfg.Portfolio.QuoteSymbol)
	assert.Equal(t, 0.001, cfg.Trading.TransactionFee)
	assert.Equal(t, 0.001, cfg.Trading.MinimumOrderValue)
	assert.Equal(t, time.Hour, cfg.Trading.MaxOrderAge())
	assert.Equal(t, time.Minute, cfg.Schedule.Tick())
	assert.Equal(t, 60, cfg.Schedule.RebalanceTicks)
	assert.Equal(t, 15, cfg.Schedule.OrderCheckTicks)
	assert.Equal(t, 1440, cfg.Schedule.ReportTicks)
	assert.Equal(t, "data/open_orders.csv", cfg.Orders.StorePath)
	assert.Equal(t, "1h", cfg.Backtest.Interval)
	assert.Equal(t, 1000, cfg.Backtest.Limit)
}

func TestLoadFullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  env: prod
  log_level: debug
  http_addr: ":8080"
exchange:
  requests_per_second: 10
portfolio:
  path: configs/portfolio.yaml
  quote_symbol: BTCUSDT
  watch_file: true
trading:
  transaction_fee: 0.00075
  minimum_order_value: 0.002
  max_order_age_seconds: 120
  dry_run: true
schedule:
  tick_seconds: 30
  rebalance_ticks: 2
  order_check_ticks: 1
  report_ticks: 10
notify:
  telegram:
    enabled: true
    bot_token: "token"
    chat_id: "42"
backtest:
  interval: 4h
  limit: 500
  seed_balances:
    BTC: 1.0
    ETH: 10.0
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.True(t, cfg.Portfolio.WatchFile)
	assert.Equal(t, 0.00075, cfg.Trading.TransactionFee)
	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, 2*time.Minute, cfg.Trading.MaxOrderAge())
	assert.Equal(t, 30*time.Second, cfg.Schedule.Tick())
	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, "42", cfg.Notify.Telegram.ChatID)
	assert.Equal(t, "4h", cfg.Backtest.Interval)
	assert.Equal(t, map[string]float64{"BTC": 1.0, "ETH": 10.0}, cfg.Backtest.SeedBalances)
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file failed")
}

func TestLoadRejectsFeeOutsideRange(t *testing.T) {
	_, err := Load(writeConfig(t, "trading:\n  transaction_fee: 1.5\n"))
	assert.ErrorContains(t, err, "transaction_fee")

	_, err = Load(writeConfig(t, "trading:\n  transaction_fee: -0.1\n"))
	assert.ErrorContains(t, err, "transaction_fee")
}

func TestLoadRejectsTelegramWithoutCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, "notify:\n  telegram:\n    enabled: true\n"))
	assert.ErrorContains(t, err, "bot_token")
}
