package portfolio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"symbol,coin_name,target_weight,protected_balance\n"+
			"BTCUSDT,BTC,0.0,0.0\n"+
			"ETHBTC,ETH,0.6,0.05\n"+
			"LTCBTC,LTC,0.4,0.0\n")

	state, err := Load(path, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, state.Assets, 3)

	eth, ok := state.BySymbol("ETHBTC")
	require.True(t, ok)
	assert.Equal(t, "ETH", eth.Coin)
	assert.Equal(t, 0.6, eth.TargetWeight)
	assert.Equal(t, 0.05, eth.ProtectedBalance)
	assert.Equal(t, []string{"ETHBTC", "LTCBTC"}, state.TradeSymbols())
}

func TestLoadCSVHeaderOrderIsFree(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"target_weight,symbol,protected_balance,coin_name\n"+
			"0.5,BTCUSDT,0,BTC\n"+
			"0.5,ETHBTC,0,ETH\n")
	state, err := Load(path, "BTCUSDT")
	require.NoError(t, err)
	eth, _ := state.BySymbol("ETHBTC")
	assert.Equal(t, 0.5, eth.TargetWeight)
}

func TestLoadYAML(t *testing.T) {
	path := writeTable(t, "portfolio.yaml", `
- symbol: BTCUSDT
  coin_name: BTC
  target_weight: 0.0
  protected_balance: 0.0
- symbol: ETHBTC
  coin_name: ETH
  target_weight: 1.0
  protected_balance: 0.1
`)
	state, err := Load(path, "BTCUSDT")
	require.NoError(t, err)
	eth, _ := state.BySymbol("ETHBTC")
	assert.Equal(t, 1.0, eth.TargetWeight)
	assert.Equal(t, 0.1, eth.ProtectedBalance)
}

func TestLoadRejectsSingleAsset(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"symbol,coin_name,target_weight,protected_balance\nBTCUSDT,BTC,1.0,0\n")
	_, err := Load(path, "BTCUSDT")
	assert.ErrorContains(t, err, "at least 2 assets")
}

func TestLoadRejectsBadWeightSum(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"symbol,coin_name,target_weight,protected_balance\n"+
			"BTCUSDT,BTC,0.0,0\n"+
			"ETHBTC,ETH,0.7,0\n")
	_, err := Load(path, "BTCUSDT")
	assert.ErrorContains(t, err, "sum")
}

func TestLoadRejectsWeightOutsideRange(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"symbol,coin_name,target_weight,protected_balance\n"+
			"BTCUSDT,BTC,-0.5,0\n"+
			"ETHBTC,ETH,1.5,0\n")
	_, err := Load(path, "BTCUSDT")
	assert.ErrorContains(t, err, "outside [0,1]")
}

func TestLoadRejectsMissingQuoteSymbol(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"symbol,coin_name,target_weight,protected_balance\n"+
			"ETHBTC,ETH,0.5,0\n"+
			"LTCBTC,LTC,0.5,0\n")
	_, err := Load(path, "BTCUSDT")
	assert.ErrorContains(t, err, "quote-reference")
}

func TestLoadRejectsMissingColumn(t *testing.T) {
	path := writeTable(t, "portfolio.csv",
		"symbol,coin_name,target_weight\nBTCUSDT,BTC,1.0\n")
	_, err := Load(path, "BTCUSDT")
	assert.ErrorContains(t, err, "protected_balance")
}

func TestApplyBalancesSubtractsProtectedReserve(t *testing.T) {
	state, err := NewState("BTCUSDT", []*Asset{
		{Symbol: "BTCUSDT", Coin: "BTC", ProtectedBalance: 0.2},
		{Symbol: "ETHBTC", Coin: "ETH"},
	})
	require.NoError(t, err)
	state.ApplyBalances(map[string]float64{"BTC": 1.0, "ETH": 3.0})

	btc, _ := state.BySymbol("BTCUSDT")
	eth, _ := state.BySymbol("ETHBTC")
	assert.InDelta(t, 0.8, btc.Balance, 1e-12)
	assert.InDelta(t, 3.0, eth.Balance, 1e-12)
}

func TestFreezeHoldBaselineCopiesBalances(t *testing.T) {
	state, err := NewState("BTCUSDT", []*Asset{
		{Symbol: "BTCUSDT", Coin: "BTC", Balance: 2},
		{Symbol: "ETHBTC", Coin: "ETH", Balance: 5},
	})
	require.NoError(t, err)
	state.FreezeHoldBaseline()

	eth, _ := state.BySymbol("ETHBTC")
	eth.Balance = 9
	assert.Equal(t, 5.0, eth.HoldBalance)
}
