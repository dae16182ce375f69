package portfolio

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// weightEpsilon bounds the allowed drift of the target-weight sum from 1.
const weightEpsilon = 1e-6

// row is one portfolio table entry, shared by the CSV and YAML formats.
type row struct {
	Symbol           string  `yaml:"symbol"`
	CoinName         string  `yaml:"coin_name"`
	TargetWeight     float64 `yaml:"target_weight"`
	ProtectedBalance float64 `yaml:"protected_balance"`
}

// Load reads the portfolio table (CSV or YAML, by extension) and builds the
// initial State. Startup fails on fewer than two rows or weights that do not
// sum to one.
func Load(path, quoteSymbol string) (*State, error) {
	var (
		rows []row
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		rows, err = loadYAML(path)
	default:
		rows, err = loadCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("portfolio %s: need at least 2 assets, got %d", path, len(rows))
	}
	assets := make([]*Asset, 0, len(rows))
	sum := 0.0
	for _, r := range rows {
		if r.Symbol == "" {
			return nil, fmt.Errorf("portfolio %s: entry without symbol", path)
		}
		if r.TargetWeight < 0 || r.TargetWeight > 1 {
			return nil, fmt.Errorf("portfolio %s: %s target_weight %v outside [0,1]", path, r.Symbol, r.TargetWeight)
		}
		if r.ProtectedBalance < 0 {
			return nil, fmt.Errorf("portfolio %s: %s protected_balance must be >= 0", path, r.Symbol)
		}
		sum += r.TargetWeight
		assets = append(assets, &Asset{
			Symbol:           r.Symbol,
			Coin:             r.CoinName,
			TargetWeight:     r.TargetWeight,
			ProtectedBalance: r.ProtectedBalance,
		})
	}
	if math.Abs(sum-1) > weightEpsilon {
		return nil, fmt.Errorf("portfolio %s: target weights sum to %v, want 1", path, sum)
	}
	return NewState(quoteSymbol, assets)
}

func loadCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading portfolio table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("portfolio table %s is empty", path)
	}
	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, fmt.Errorf("portfolio table %s: %w", path, err)
	}
	rows := make([]row, 0, len(records)-1)
	for i, rec := range records[1:] {
		target, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["target_weight"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("portfolio table %s line %d: bad target_weight: %w", path, i+2, err)
		}
		protected, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["protected_balance"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("portfolio table %s line %d: bad protected_balance: %w", path, i+2, err)
		}
		rows = append(rows, row{
			Symbol:           strings.TrimSpace(rec[cols["symbol"]]),
			CoinName:         strings.TrimSpace(rec[cols["coin_name"]]),
			TargetWeight:     target,
			ProtectedBalance: protected,
		})
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"symbol", "coin_name", "target_weight", "protected_balance"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return cols, nil
}

func loadYAML(path string) ([]row, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio table: %w", err)
	}
	var rows []row
	if err := yaml.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parsing portfolio table %s: %w", path, err)
	}
	return rows, nil
}
