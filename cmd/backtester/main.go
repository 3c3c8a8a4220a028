// Package main provides the entry point for the event-driven backtester.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/strats-center/backtester/internal/backtest"
	"github.com/strats-center/backtester/internal/config"
	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
	"github.com/strats-center/backtester/internal/execution"
	"github.com/strats-center/backtester/internal/portfolio"
	"github.com/strats-center/backtester/internal/sizing"
	"github.com/strats-center/backtester/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger is not configured yet; fall back to a plain message.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	level := cfg.App.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := setupLogger(level)
	defer logger.Sync()

	logger.Info("starting backtester",
		zap.String("app", cfg.App.Name),
		zap.String("config", *configPath),
		zap.String("symbol", cfg.Data.Symbol),
		zap.String("data_path", cfg.Data.Path),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load market data.
	loader := data.NewBinanceCSVLoader(logger.Named("loader"))
	series, err := loader.Load(cfg.Data.Path)
	if err != nil {
		logger.Fatal("failed to load market data", zap.Error(err))
	}
	feed := data.NewHistoricCSV(logger.Named("data"), cfg.Data.Symbol, series)

	// Event bus, optionally with Prometheus metrics.
	registry := events.NewRegistry(logger.Named("registry"))
	busOpts := []events.BusOption{events.WithMaxHistory(cfg.Events.MaxHistory)}
	if cfg.Metrics.Listen != "" {
		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewGoCollector())
		busOpts = append(busOpts, events.WithMetrics(events.NewBusMetrics(promRegistry)))
		go serveMetrics(logger, cfg.Metrics.Listen, promRegistry)
	}
	bus := events.NewBus(registry, logger.Named("bus"), busOpts...)

	// Handler chain.
	book := portfolio.New(logger.Named("portfolio"), bus, feed, cfg.Backtest.InitialCapital)

	sizer, err := sizing.NewFixedQuantitySizer(logger.Named("sizing"), cfg.Backtest.OrderQuantity)
	if err != nil {
		logger.Fatal("failed to create sizer", zap.Error(err))
	}
	orderManager := execution.NewOrderManager(logger.Named("execution"), bus, book, feed, sizer)

	broker := backtest.NewSimulatedBroker(logger.Named("broker"), bus, feed, backtest.CommissionModel{
		Type: backtest.CommissionType(cfg.Backtest.Commission.Type),
		Rate: cfg.Backtest.Commission.Rate,
	})

	strat := strategy.New(logger.Named("strategy"), bus, strategy.NewPriceLogic(logger.Named("strategy")), strategy.Config{
		Name:       cfg.Strategy.Name,
		Symbols:    []string{cfg.Data.Symbol},
		MaxHistory: cfg.Strategy.MaxHistory,
	})

	for _, handler := range []events.Handler{strat, orderManager, broker, book} {
		if err := registry.Register(handler); err != nil {
			logger.Fatal("handler registration failed",
				zap.String("handler", handler.Name()),
				zap.Error(err),
			)
		}
	}

	// Run the simulation.
	engine := backtest.NewEngine(logger.Named("engine"), bus, feed, book)
	if err := engine.Run(ctx); err != nil {
		logger.Error("backtest aborted", zap.Error(err))
		os.Exit(1)
	}

	stats := bus.Stats()
	logger.Info("event bus statistics",
		zap.Int64("events_published", stats.EventsPublished),
		zap.Int64("handlers_executed", stats.HandlersExecuted),
		zap.Int64("handler_errors", stats.HandlerErrors),
		zap.Int("history_size", stats.HistorySize),
	)
}

func serveMetrics(logger *zap.Logger, listen string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", zap.String("addr", listen))
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("metrics endpoint failed", zap.Error(err))
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
