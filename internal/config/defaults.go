package config

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9992"
	defaultExchangeName    = "binance"
	defaultExchangeREST    = "https://api.binance.com"
	defaultExchangeTimeout = 15
	defaultExchangeRPS     = 5.0
	defaultPortfolioPath   = "configs/portfolio.csv"
	defaultQuoteSymbol     = "BTCUSDT"
	defaultFee             = 0.001
	defaultMinOrderValue   = 0.001
	defaultMaxOrderAge     = 3600
	defaultTickSeconds     = 60
	defaultRebalanceTicks  = 60
	defaultOrderCheckTicks = 15
	defaultReportTicks     = 1440
	defaultOrderStorePath  = "data/open_orders.csv"
	defaultBTInterval      = "1h"
	defaultBTLimit         = 1000
	defaultBTReportDir     = "data/reports"
	defaultBTStorePath     = "data/backtest"
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.Exchange.Name == "" {
		c.Exchange.Name = defaultExchangeName
	}
	if c.Exchange.RESTBaseURL == "" {
		c.Exchange.RESTBaseURL = defaultExchangeREST
	}
	if c.Exchange.HTTPTimeoutSeconds <= 0 {
		c.Exchange.HTTPTimeoutSeconds = defaultExchangeTimeout
	}
	if c.Exchange.RequestsPerSecond <= 0 {
		c.Exchange.RequestsPerSecond = defaultExchangeRPS
	}
	if c.Portfolio.Path == "" {
		c.Portfolio.Path = defaultPortfolioPath
	}
	if c.Portfolio.QuoteSymbol == "" {
		c.Portfolio.QuoteSymbol = defaultQuoteSymbol
	}
	if c.Trading.TransactionFee == 0 {
		c.Trading.TransactionFee = defaultFee
	}
	if c.Trading.MinimumOrderValue <= 0 {
		c.Trading.MinimumOrderValue = defaultMinOrderValue
	}
	if c.Trading.MaxOrderAgeSecs <= 0 {
		c.Trading.MaxOrderAgeSecs = defaultMaxOrderAge
	}
	if c.Schedule.TickSeconds <= 0 {
		c.Schedule.TickSeconds = defaultTickSeconds
	}
	if c.Schedule.RebalanceTicks <= 0 {
		c.Schedule.RebalanceTicks = defaultRebalanceTicks
	}
	if c.Schedule.OrderCheckTicks <= 0 {
		c.Schedule.OrderCheckTicks = defaultOrderCheckTicks
	}
	if c.Schedule.ReportTicks <= 0 {
		c.Schedule.ReportTicks = defaultReportTicks
	}
	if c.Orders.StorePath == "" {
		c.Orders.StorePath = defaultOrderStorePath
	}
	if c.Backtest.Interval == "" {
		c.Backtest.Interval = defaultBTInterval
	}
	if c.Backtest.Limit <= 0 {
		c.Backtest.Limit = defaultBTLimit
	}
	if c.Backtest.ReportDir == "" {
		c.Backtest.ReportDir = defaultBTReportDir
	}
	if c.Backtest.StorePath == "" {
		c.Backtest.StorePath = defaultBTStorePath
	}
}
