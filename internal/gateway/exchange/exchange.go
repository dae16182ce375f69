package exchange

import "context"

// Exchange is the contract the core consumes. Implementations wrap a venue's
// REST API; the core never talks to a venue directly.
type Exchange interface {
	Name() string

	// Balances returns free balances keyed by coin name (e.g. "ETH").
	Balances(ctx context.Context) (map[string]float64, error)

	// Prices returns last prices keyed by pair symbol (e.g. "ETHBTC").
	Prices(ctx context.Context) (map[string]float64, error)

	// LotSteps returns lot-size constraints for the given pair symbols.
	LotSteps(ctx context.Context, symbols []string) (map[string]LotStep, error)

	// PlaceOrder submits a limit order. With req.DryRun set the request is
	// routed through the venue's validate-only path and no order is created.
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error)

	// OpenOrders lists the currently open orders for one pair symbol.
	OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)

	CancelOrder(ctx context.Context, symbol string, orderID int64) error

	// Klines returns up to limit historical candles for one pair symbol.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
