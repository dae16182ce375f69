package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport renders the equity curve to a standalone HTML chart and
// returns the file path.
func WriteReport(dir string, run Run, result *Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}

	xAxis := make([]string, 0, len(result.Timestamps))
	portfolio := make([]opts.LineData, 0, len(result.Portfolio))
	hold := make([]opts.LineData, 0, len(result.Hold))
	for i, ts := range result.Timestamps {
		xAxis = append(xAxis, time.UnixMilli(ts).UTC().Format("01-02 15:04"))
		portfolio = append(portfolio, opts.LineData{Value: result.Portfolio[i]})
		hold = append(hold, opts.LineData{Value: result.Hold[i]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Rebalance vs Hold",
			Subtitle: fmt.Sprintf("run %s | %d points | %d trades", run.ID, run.Points, run.Trades),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "5%"}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Rebalance", portfolio)
	line.AddSeries("Hold", hold)

	path := filepath.Join(dir, fmt.Sprintf("backtest-%s.html", run.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report file: %w", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return path, nil
}
