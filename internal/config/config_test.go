package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: my-backtester
  log_level: debug
data:
  path: /data/klines.csv
  symbol: ETHUSDT
strategy:
  name: price
  max_history: 500
backtest:
  initial_capital: "25000"
  order_quantity: "0.5"
  commission:
    type: fixed
    rate: "1.25"
events:
  max_history: 200
metrics:
  listen: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-backtester", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "/data/klines.csv", cfg.Data.Path)
	assert.Equal(t, "ETHUSDT", cfg.Data.Symbol)
	assert.Equal(t, 500, cfg.Strategy.MaxHistory)
	assert.True(t, cfg.Backtest.InitialCapital.Equal(decimal.NewFromInt(25000)))
	assert.True(t, cfg.Backtest.OrderQuantity.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "fixed", cfg.Backtest.Commission.Type)
	assert.True(t, cfg.Backtest.Commission.Rate.Equal(decimal.RequireFromString("1.25")))
	assert.Equal(t, 200, cfg.Events.MaxHistory)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  path: /data/klines.csv
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "backtester", cfg.App.Name)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "BTCUSDT", cfg.Data.Symbol)
	assert.True(t, cfg.Backtest.InitialCapital.Equal(decimal.NewFromInt(10000)))
	assert.True(t, cfg.Backtest.OrderQuantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "percentage", cfg.Backtest.Commission.Type)
	assert.True(t, cfg.Backtest.Commission.Rate.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, 1000, cfg.Events.MaxHistory)
	assert.Empty(t, cfg.Metrics.Listen)
}

func TestLoadNumericDecimalValues(t *testing.T) {
	path := writeConfig(t, `
data:
  path: /data/klines.csv
backtest:
  initial_capital: 50000
  order_quantity: 2.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Backtest.InitialCapital.Equal(decimal.NewFromInt(50000)))
	assert.True(t, cfg.Backtest.OrderQuantity.Equal(decimal.RequireFromString("2.5")))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "missing data path",
			contents: "app:\n  name: x\n",
			wantErr:  "data.path",
		},
		{
			name: "zero capital",
			contents: `
data:
  path: /data/klines.csv
backtest:
  initial_capital: "0"
`,
			wantErr: "initial_capital",
		},
		{
			name: "negative order quantity",
			contents: `
data:
  path: /data/klines.csv
backtest:
  order_quantity: "-1"
`,
			wantErr: "order_quantity",
		},
		{
			name: "bad commission type",
			contents: `
data:
  path: /data/klines.csv
backtest:
  commission:
    type: tiered
`,
			wantErr: "commission.type",
		},
		{
			name: "negative commission rate",
			contents: `
data:
  path: /data/klines.csv
backtest:
  commission:
    rate: "-0.01"
`,
			wantErr: "commission.rate",
		},
		{
			name: "negative event history",
			contents: `
data:
  path: /data/klines.csv
events:
  max_history: -1
`,
			wantErr: "max_history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
