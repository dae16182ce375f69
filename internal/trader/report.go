package trader

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/devon-brazier/rebalancer.v2/internal/engine"
)

// buildReport renders the periodic operator message: run time, activity since
// the last report and performance against the frozen hold baseline.
func (s *Service) buildReport(snap *engine.Snapshot) (string, error) {
	profitUSD, profitRatio, err := engine.ProfitVsHold(snap.TotalUSD, snap.HoldTotalUSD)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	now := time.Now()
	fmt.Fprintf(&b, "REBALANCING BOT INFO %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Run time: %s\n", now.Sub(s.startedAt).Truncate(time.Second))
	fmt.Fprintf(&b, "Trades since last report: %d\n", s.counters.Trades)
	fmt.Fprintf(&b, "Traded volume since last report: $%.2f\n\n", s.counters.VolumeUSD)

	b.WriteString("Balance drift since start:\n")
	table := tablewriter.NewWriter(&b)
	table.Header("Coin", "Balance", "vs Hold")
	for _, a := range s.state.Assets {
		table.Append(a.Coin,
			fmt.Sprintf("%.8f", a.Balance),
			fmt.Sprintf("%+.8f", a.Balance-a.HoldBalance),
		)
	}
	table.Render()

	fmt.Fprintf(&b, "\nPortfolio value: $%.2f\n", snap.TotalUSD)
	fmt.Fprintf(&b, "Hold baseline:   $%.2f\n", snap.HoldTotalUSD)
	fmt.Fprintf(&b, "Profit vs hold:  $%.2f (%.4f%%)\n", profitUSD, profitRatio*100)
	return b.String(), nil
}
