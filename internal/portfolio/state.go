// Package portfolio holds the per-asset records the rebalancing loop mutates
// each cycle and the loader for the target-weight table.
package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset is one tradable pair in the portfolio, including the quote-reference
// pair (e.g. BTCUSDT). Symbol, TargetWeight and ProtectedBalance are fixed at
// load; Price and Balance are refreshed every cycle.
type Asset struct {
	Symbol           string // pair symbol, e.g. "ETHBTC"
	Coin             string // base coin, e.g. "ETH"
	TargetWeight     float64
	ProtectedBalance float64
	LotStep          decimal.Decimal
	Price            float64 // pair price in quote units
	Balance          float64 // tradable balance: free minus protected
	HoldBalance      float64 // frozen buy-and-hold baseline
}

// State owns the ordered asset list for the process lifetime. The scheduler
// is its single writer; see the concurrency notes in the trader package.
type State struct {
	QuoteSymbol string
	Assets      []*Asset

	index map[string]*Asset
}

func NewState(quoteSymbol string, assets []*Asset) (*State, error) {
	if len(assets) < 2 {
		return nil, fmt.Errorf("portfolio must contain at least 2 assets, got %d", len(assets))
	}
	s := &State{
		QuoteSymbol: quoteSymbol,
		Assets:      assets,
		index:       make(map[string]*Asset, len(assets)),
	}
	for _, a := range assets {
		if _, dup := s.index[a.Symbol]; dup {
			return nil, fmt.Errorf("duplicate portfolio symbol %s", a.Symbol)
		}
		s.index[a.Symbol] = a
	}
	if _, ok := s.index[quoteSymbol]; !ok {
		return nil, fmt.Errorf("portfolio missing quote-reference symbol %s", quoteSymbol)
	}
	return s, nil
}

func (s *State) BySymbol(symbol string) (*Asset, bool) {
	a, ok := s.index[symbol]
	return a, ok
}

func (s *State) Quote() *Asset {
	return s.index[s.QuoteSymbol]
}

func (s *State) Symbols() []string {
	out := make([]string, 0, len(s.Assets))
	for _, a := range s.Assets {
		out = append(out, a.Symbol)
	}
	return out
}

// TradeSymbols lists every pair except the quote-reference one, which is
// never traded directly.
func (s *State) TradeSymbols() []string {
	out := make([]string, 0, len(s.Assets)-1)
	for _, a := range s.Assets {
		if a.Symbol == s.QuoteSymbol {
			continue
		}
		out = append(out, a.Symbol)
	}
	return out
}

// ApplyBalances refreshes tradable balances from free balances keyed by coin.
// The protected reserve is excluded from rebalancing.
func (s *State) ApplyBalances(free map[string]float64) {
	for _, a := range s.Assets {
		a.Balance = free[a.Coin] - a.ProtectedBalance
	}
}

// ApplyPrices refreshes pair prices from a price map keyed by pair symbol.
// Missing symbols leave the price at zero, which the engine treats as a
// market-data error.
func (s *State) ApplyPrices(prices map[string]float64) {
	for _, a := range s.Assets {
		a.Price = prices[a.Symbol]
	}
}

// ApplyLotSteps installs the exchange-mandated lot steps, keyed by pair symbol.
func (s *State) ApplyLotSteps(steps map[string]decimal.Decimal) error {
	for _, a := range s.Assets {
		step, ok := steps[a.Symbol]
		if !ok {
			return fmt.Errorf("no lot step for symbol %s", a.Symbol)
		}
		a.LotStep = step
	}
	return nil
}

// FreezeHoldBaseline records the current balances as the buy-and-hold
// baseline. Called once at startup (live) or after seeding (backtest).
func (s *State) FreezeHoldBaseline() {
	for _, a := range s.Assets {
		a.HoldBalance = a.Balance
	}
}
