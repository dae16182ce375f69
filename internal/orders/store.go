package orders

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/devon-brazier/rebalancer.v2/internal/gateway/exchange"
)

var orderFileHeader = []string{"id", "symbol", "side", "quantity", "price", "submitted_at_ms"}

// writeOrderFile overwrites the flat open-order snapshot. The exchange
// remains authoritative, so a crash mid-write loses nothing of record.
func writeOrderFile(path string, orders []exchange.OpenOrder) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("order store: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("order store: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(orderFileHeader); err != nil {
		return fmt.Errorf("order store: %w", err)
	}
	for _, o := range orders {
		record := []string{
			strconv.FormatInt(o.ID, 10),
			o.Symbol,
			string(o.Side),
			strconv.FormatFloat(o.Quantity, 'f', -1, 64),
			strconv.FormatFloat(o.Price, 'f', 8, 64),
			strconv.FormatInt(o.SubmittedAt.UnixMilli(), 10),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("order store: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("order store: %w", err)
	}
	return nil
}
