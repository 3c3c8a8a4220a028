package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/events"
)

// Binance kline CSV layout: openTime, open, high, low, close, volume, and
// trailing columns (closeTime, quoteVolume, ...) that are ignored.
const minKlineColumns = 6

// BinanceCSVLoader parses Binance kline export files into bar series.
type BinanceCSVLoader struct {
	logger *zap.Logger
}

// NewBinanceCSVLoader creates a kline CSV loader.
func NewBinanceCSVLoader(logger *zap.Logger) *BinanceCSVLoader {
	return &BinanceCSVLoader{logger: logger}
}

// Load reads a Binance kline CSV file and returns its bars in file order.
// A header row is detected and skipped. Timestamps are millisecond Unix
// epochs interpreted as UTC.
func (l *BinanceCSVLoader) Load(path string) ([]Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kline file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // Binance exports vary in trailing columns.

	var series []Series
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", path, row+1, err)
		}
		row++

		if len(record) < minKlineColumns {
			return nil, fmt.Errorf("%s row %d: expected at least %d columns, got %d",
				path, row, minKlineColumns, len(record))
		}

		openTimeMs, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if row == 1 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("%s row %d: invalid open time %q", path, row, record[0])
		}

		bar, err := parseBar(record)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}

		series = append(series, Series{
			Timestamp: time.UnixMilli(openTimeMs).UTC(),
			Bar:       bar,
		})
	}

	l.logger.Info("kline file loaded",
		zap.String("path", path),
		zap.Int("bars", len(series)),
	)
	return series, nil
}

func parseBar(record []string) (events.Bar, error) {
	fields := [5]struct {
		name  string
		value string
	}{
		{"open", record[1]},
		{"high", record[2]},
		{"low", record[3]},
		{"close", record[4]},
		{"volume", record[5]},
	}

	var parsed [5]decimal.Decimal
	for i, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return events.Bar{}, fmt.Errorf("invalid %s %q", f.name, f.value)
		}
		parsed[i] = d
	}

	return events.Bar{
		Open:   parsed[0],
		High:   parsed[1],
		Low:    parsed[2],
		Close:  parsed[3],
		Volume: parsed[4],
	}, nil
}
