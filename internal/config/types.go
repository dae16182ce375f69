package config

import "time"

// Config is the full configuration carrier for the rebalancer.
type Config struct {
	App       AppConfig       `toml:"app"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Portfolio PortfolioConfig `toml:"portfolio"`
	Trading   TradingConfig   `toml:"trading"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Orders    OrdersConfig    `toml:"orders"`
	Notify    NotifyConfig    `toml:"notify"`
	Backtest  BacktestConfig  `toml:"backtest"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

type ExchangeConfig struct {
	Name               string  `toml:"name"`
	RESTBaseURL        string  `toml:"rest_base_url"`
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
}

func (e ExchangeConfig) HTTPTimeout() time.Duration {
	return time.Duration(e.HTTPTimeoutSeconds) * time.Second
}

type PortfolioConfig struct {
	Path        string `toml:"path"`
	QuoteSymbol string `toml:"quote_symbol"`
	WatchFile   bool   `toml:"watch_file"`
}

// TradingConfig holds the knobs the decision engine and order lifecycle
// consume.
type TradingConfig struct {
	TransactionFee    float64 `toml:"transaction_fee"`
	MinimumOrderValue float64 `toml:"minimum_order_value"` // in quote units, e.g. BTC
	MaxOrderAgeSecs   int     `toml:"max_order_age_seconds"`
	DryRun            bool    `toml:"dry_run"`
}

func (t TradingConfig) MaxOrderAge() time.Duration {
	return time.Duration(t.MaxOrderAgeSecs) * time.Second
}

// ScheduleConfig expresses every task period as an integer multiple of the
// base tick.
type ScheduleConfig struct {
	TickSeconds     int `toml:"tick_seconds"`
	RebalanceTicks  int `toml:"rebalance_ticks"`
	OrderCheckTicks int `toml:"order_check_ticks"`
	ReportTicks     int `toml:"report_ticks"`
}

func (s ScheduleConfig) Tick() time.Duration {
	return time.Duration(s.TickSeconds) * time.Second
}

type OrdersConfig struct {
	StorePath string `toml:"store_path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type BacktestConfig struct {
	Interval     string             `toml:"interval"`
	Limit        int                `toml:"limit"`
	ReportDir    string             `toml:"report_dir"`
	StorePath    string             `toml:"store_path"`
	SeedBalances map[string]float64 `toml:"seed_balances"` // coin -> starting amount
}
