package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Portfolio.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if strings.TrimSpace(e.RESTBaseURL) == "" {
		return fmt.Errorf("exchange.rest_base_url cannot be empty")
	}
	return nil
}

func (p *PortfolioConfig) validate() error {
	if strings.TrimSpace(p.Path) == "" {
		return fmt.Errorf("portfolio.path cannot be empty")
	}
	if strings.TrimSpace(p.QuoteSymbol) == "" {
		return fmt.Errorf("portfolio.quote_symbol cannot be empty")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.TransactionFee < 0 || t.TransactionFee >= 1 {
		return fmt.Errorf("trading.transaction_fee must be in [0,1), got %v", t.TransactionFee)
	}
	if t.MinimumOrderValue <= 0 {
		return fmt.Errorf("trading.minimum_order_value must be > 0")
	}
	if t.MaxOrderAgeSecs <= 0 {
		return fmt.Errorf("trading.max_order_age_seconds must be > 0")
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if s.TickSeconds <= 0 {
		return fmt.Errorf("schedule.tick_seconds must be > 0")
	}
	for name, ticks := range map[string]int{
		"schedule.rebalance_ticks":   s.RebalanceTicks,
		"schedule.order_check_ticks": s.OrderCheckTicks,
		"schedule.report_ticks":      s.ReportTicks,
	} {
		if ticks <= 0 {
			return fmt.Errorf("%s must be >= 1", name)
		}
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
