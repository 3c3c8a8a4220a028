// Package config loads and validates the backtester configuration.
package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the full backtester configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Data     DataConfig     `mapstructure:"data"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// DataConfig describes the market data source.
type DataConfig struct {
	Path   string `mapstructure:"path"`
	Symbol string `mapstructure:"symbol"`
}

// StrategyConfig configures the trading strategy.
type StrategyConfig struct {
	Name       string `mapstructure:"name"`
	MaxHistory int    `mapstructure:"max_history"`
}

// BacktestConfig configures the simulation run.
type BacktestConfig struct {
	InitialCapital decimal.Decimal  `mapstructure:"initial_capital"`
	OrderQuantity  decimal.Decimal  `mapstructure:"order_quantity"`
	Commission     CommissionConfig `mapstructure:"commission"`
}

// CommissionConfig configures the simulated broker's commission.
type CommissionConfig struct {
	Type string          `mapstructure:"type"`
	Rate decimal.Decimal `mapstructure:"rate"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	MaxHistory int `mapstructure:"max_history"`
}

// MetricsConfig configures the Prometheus metrics endpoint. An empty listen
// address disables the endpoint.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load reads the configuration from a YAML file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decimalDecodeHook())); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "backtester",
			LogLevel: "info",
		},
		Data: DataConfig{
			Symbol: "BTCUSDT",
		},
		Strategy: StrategyConfig{
			Name:       "price",
			MaxHistory: 1000,
		},
		Backtest: BacktestConfig{
			InitialCapital: decimal.NewFromInt(10000),
			OrderQuantity:  decimal.NewFromInt(1),
			Commission: CommissionConfig{
				Type: "percentage",
				Rate: decimal.RequireFromString("0.001"),
			},
		},
		Events: EventsConfig{
			MaxHistory: 1000,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.log_level", d.App.LogLevel)
	v.SetDefault("data.symbol", d.Data.Symbol)
	v.SetDefault("strategy.name", d.Strategy.Name)
	v.SetDefault("strategy.max_history", d.Strategy.MaxHistory)
	v.SetDefault("backtest.initial_capital", d.Backtest.InitialCapital.String())
	v.SetDefault("backtest.order_quantity", d.Backtest.OrderQuantity.String())
	v.SetDefault("backtest.commission.type", d.Backtest.Commission.Type)
	v.SetDefault("backtest.commission.rate", d.Backtest.Commission.Rate.String())
	v.SetDefault("events.max_history", d.Events.MaxHistory)
	v.SetDefault("metrics.listen", "")
}

// decimalDecodeHook lets viper decode numeric and string config values into
// decimal.Decimal fields.
func decimalDecodeHook() mapstructure.DecodeHookFunc {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(v)
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		default:
			return data, nil
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if cfg.Data.Symbol == "" {
		return fmt.Errorf("data.symbol is required")
	}
	if !cfg.Backtest.InitialCapital.IsPositive() {
		return fmt.Errorf("backtest.initial_capital must be positive, got %s", cfg.Backtest.InitialCapital)
	}
	if !cfg.Backtest.OrderQuantity.IsPositive() {
		return fmt.Errorf("backtest.order_quantity must be positive, got %s", cfg.Backtest.OrderQuantity)
	}
	switch cfg.Backtest.Commission.Type {
	case "percentage", "fixed":
	default:
		return fmt.Errorf("backtest.commission.type must be percentage or fixed, got %q", cfg.Backtest.Commission.Type)
	}
	if cfg.Backtest.Commission.Rate.IsNegative() {
		return fmt.Errorf("backtest.commission.rate must be non-negative, got %s", cfg.Backtest.Commission.Rate)
	}
	if cfg.Events.MaxHistory < 0 {
		return fmt.Errorf("events.max_history must be non-negative, got %d", cfg.Events.MaxHistory)
	}
	return nil
}
