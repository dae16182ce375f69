// Package orders owns the live open-order set: submission, staleness
// sweeps, cancellation and the flat-file snapshot of what is resting.
package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
	"github.com/devon-brazier/rebalancer.v2/internal/logger"
)

// Manager tracks outstanding orders. The exchange stays authoritative: every
// sweep replaces the local set wholesale, so a failed cancellation is
// re-discovered and retried on the next pass.
type Manager struct {
	ex        exchange.Exchange
	maxAge    time.Duration
	dryRun    bool
	storePath string

	nowFn func() time.Time
	open  []exchange.OpenOrder
}

func NewManager(ex exchange.Exchange, maxAge time.Duration, dryRun bool, storePath string) *Manager {
	return &Manager{
		ex:        ex,
		maxAge:    maxAge,
		dryRun:    dryRun,
		storePath: storePath,
		nowFn:     time.Now,
	}
}

// Submit places one limit order. A venue rejection is surfaced to the caller
// and the order is not recorded locally.
func (m *Manager) Submit(ctx context.Context, symbol string, side exchange.Side, quantity, price float64) error {
	if quantity <= 0 {
		return fmt.Errorf("submit %s %s: quantity must be positive, got %v", side, symbol, quantity)
	}
	req := exchange.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		ClientID: "reb-" + uuid.NewString(),
		DryRun:   m.dryRun,
	}
	ack, err := m.ex.PlaceOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("submit %s %s: %w", side, symbol, err)
	}
	logger.Infof("order placed: %s %v %s @ %.8f (dry_run=%v)", side, quantity, symbol, price, ack.DryRun)
	if ack.DryRun {
		return nil
	}
	m.open = append(m.open, exchange.OpenOrder{
		ID:          ack.OrderID,
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		SubmittedAt: m.nowFn(),
	})
	return nil
}

// Sweep replaces the local set with what the exchange reports for the given
// symbols, ordered by submission time.
func (m *Manager) Sweep(ctx context.Context, symbols []string) error {
	fresh := make([]exchange.OpenOrder, 0, len(m.open))
	for _, symbol := range symbols {
		orders, err := m.ex.OpenOrders(ctx, symbol)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", symbol, err)
		}
		fresh = append(fresh, orders...)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].SubmittedAt.Before(fresh[j].SubmittedAt)
	})
	m.open = fresh
	return nil
}

// CancelStale cancels every order at or past the age threshold and removes it
// from the local set regardless of the cancellation outcome. Removal is
// optimistic: if the call failed the order resurfaces on the next sweep.
func (m *Manager) CancelStale(ctx context.Context) int {
	now := m.nowFn()

	// Collect first, mutate after: never edit the set mid-iteration.
	stale := make([]exchange.OpenOrder, 0)
	keep := make([]exchange.OpenOrder, 0, len(m.open))
	for _, o := range m.open {
		if o.Age(now) >= m.maxAge {
			stale = append(stale, o)
		} else {
			keep = append(keep, o)
		}
	}
	for _, o := range stale {
		if err := m.ex.CancelOrder(ctx, o.Symbol, o.ID); err != nil {
			logger.Warnf("cancel of stale order %d (%s %s) failed, will retry next sweep: %v",
				o.ID, o.Side, o.Symbol, err)
			continue
		}
		logger.Infof("cancelled stale order %d: %s %v %s @ %.8f age=%s",
			o.ID, o.Side, o.Quantity, o.Symbol, o.Price, o.Age(now).Truncate(time.Second))
	}
	m.open = keep
	return len(stale)
}

// Check runs one order-maintenance pass: sweep, cancel stale, persist —
// strictly in that order, so the persisted snapshot never shows an order
// already identified as stale without a cancellation attempt.
func (m *Manager) Check(ctx context.Context, symbols []string) error {
	if err := m.Sweep(ctx, symbols); err != nil {
		return err
	}
	if n := m.CancelStale(ctx); n > 0 {
		logger.Infof("order check: %d stale order(s) cancelled", n)
	}
	return m.Persist()
}

// Persist overwrites the flat order-file snapshot with the current set.
func (m *Manager) Persist() error {
	return writeOrderFile(m.storePath, m.open)
}

// Open returns a copy of the tracked open-order set.
func (m *Manager) Open() []exchange.OpenOrder {
	out := make([]exchange.OpenOrder, len(m.open))
	copy(out, m.open)
	return out
}
