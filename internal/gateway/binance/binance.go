// Package binance implements the exchange gateway on top of the go-binance
// spot client.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
)

// Gateway implements exchange.Exchange against Binance spot.
type Gateway struct {
	cfg     Config
	client  *gobinance.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Gateway, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.APIKey) == "" || strings.TrimSpace(final.SecretKey) == "" {
		return nil, fmt.Errorf("binance: missing API credentials, check environment variables")
	}
	client := gobinance.NewClient(final.APIKey, final.SecretKey)
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Gateway{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(final.RequestsPerSecond), 1),
	}, nil
}

func (g *Gateway) Name() string { return "binance" }

func (g *Gateway) wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

func (g *Gateway) Balances(ctx context.Context) (map[string]float64, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: fetching balances: %w", err)
	}
	out := make(map[string]float64, len(account.Balances))
	for _, b := range account.Balances {
		out[b.Asset] = parseFloat(b.Free)
	}
	return out, nil
}

func (g *Gateway) Prices(ctx context.Context) (map[string]float64, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	prices, err := g.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: fetching prices: %w", err)
	}
	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		if p == nil {
			continue
		}
		out[p.Symbol] = parseFloat(p.Price)
	}
	return out, nil
}

// LotSteps extracts the LOT_SIZE filter for each requested symbol from the
// exchange info payload. The SDK exposes filters as raw maps, so the values
// are pulled out with gjson and kept as decimals with their original scale.
func (g *Gateway) LotSteps(ctx context.Context, symbols []string) (map[string]exchange.LotStep, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	info, err := g.client.NewExchangeInfoService().Symbols(symbols...).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: fetching exchange info: %w", err)
	}
	out := make(map[string]exchange.LotStep, len(symbols))
	for _, sym := range info.Symbols {
		raw, err := json.Marshal(sym.Filters)
		if err != nil {
			continue
		}
		lot := gjson.GetBytes(raw, `#(filterType=="LOT_SIZE")`)
		if !lot.Exists() {
			continue
		}
		step, err := parseLotStep(lot)
		if err != nil {
			return nil, fmt.Errorf("binance: symbol %s: %w", sym.Symbol, err)
		}
		out[sym.Symbol] = step
	}
	for _, s := range symbols {
		if _, ok := out[s]; !ok {
			return nil, fmt.Errorf("binance: no LOT_SIZE filter for symbol %s", s)
		}
	}
	return out, nil
}

func parseLotStep(lot gjson.Result) (exchange.LotStep, error) {
	step, err := decimal.NewFromString(lot.Get("stepSize").String())
	if err != nil {
		return exchange.LotStep{}, fmt.Errorf("bad stepSize: %w", err)
	}
	minQty, err := decimal.NewFromString(lot.Get("minQty").String())
	if err != nil {
		return exchange.LotStep{}, fmt.Errorf("bad minQty: %w", err)
	}
	maxQty, err := decimal.NewFromString(lot.Get("maxQty").String())
	if err != nil {
		return exchange.LotStep{}, fmt.Errorf("bad maxQty: %w", err)
	}
	return exchange.LotStep{Step: step, MinQty: minQty, MaxQty: maxQty}, nil
}

func (g *Gateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderAck, error) {
	if err := g.wait(ctx); err != nil {
		return exchange.OrderAck{}, err
	}
	side := gobinance.SideTypeBuy
	if req.Side == exchange.SideSell {
		side = gobinance.SideTypeSell
	}
	svc := g.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(gobinance.OrderTypeLimit).
		TimeInForce(gobinance.TimeInForceTypeGTC).
		Quantity(formatQuantity(req.Quantity)).
		Price(formatPrice(req.Price))
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}
	if req.DryRun {
		if err := svc.Test(ctx); err != nil {
			return exchange.OrderAck{}, fmt.Errorf("binance: test order rejected: %w", err)
		}
		return exchange.OrderAck{DryRun: true}, nil
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, fmt.Errorf("binance: order rejected: %w", err)
	}
	return exchange.OrderAck{OrderID: res.OrderID}, nil
}

func (g *Gateway) OpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	orders, err := g.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: listing open orders for %s: %w", symbol, err)
	}
	out := make([]exchange.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, exchange.OpenOrder{
			ID:          o.OrderID,
			Symbol:      o.Symbol,
			Side:        exchange.Side(o.Side),
			Quantity:    parseFloat(o.OrigQuantity),
			Price:       parseFloat(o.Price),
			SubmittedAt: time.UnixMilli(o.Time),
		})
	}
	return out, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	if _, err := g.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx); err != nil {
		return fmt.Errorf("binance: cancelling order %d on %s: %w", orderID, symbol, err)
	}
	return nil
}

func (g *Gateway) Klines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}
	kls, err := g.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: fetching klines for %s: %w", symbol, err)
	}
	out := make([]exchange.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, exchange.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Close:     parseFloat(kl.Close),
		})
	}
	return out, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// formatPrice renders prices the way the venue expects for BTC-quoted pairs.
func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 8, 64)
}

// formatQuantity avoids scientific notation in the wire format.
func formatQuantity(q float64) string {
	return decimal.NewFromFloat(q).String()
}
