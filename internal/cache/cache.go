// Package cache persists candle history to disk so backtests and restarts do
// not refetch the exchange. Formats are pluggable behind the Saver interface.
package cache

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"momentum-go/internal/market"
)

// Saver persists and restores one symbol's bar history in a single file.
type Saver interface {
	Save(bars []market.Bar, path string) error
	Load(path string) ([]market.Bar, error)
	Extension() string
}

// New returns the Saver for a format, or nil when the format is unknown.
func New(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	default:
		return nil
	}
}

// Must is New but panics on an unsupported format. Configuration is validated
// before we get here, so a panic indicates a programming error.
func Must(format string) Saver {
	s := New(format)
	if s == nil {
		panic(fmt.Sprintf("cache: unsupported format %q (use: csv, json, parquet)", format))
	}
	return s
}

// FileName builds the conventional cache path for a symbol and interval,
// e.g. data/BTCUSDT_1h.parquet.
func FileName(dir, symbol, interval string, s Saver) string {
	name := fmt.Sprintf("%s_%s.%s", strings.ToUpper(symbol), interval, s.Extension())
	return filepath.Join(dir, name)
}

// CSVSaver stores bars as a headered CSV file.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

func (CSVSaver) Save(bars []market.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			strconv.FormatInt(b.Timestamp, 10),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (CSVSaver) Load(path string) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	bars := make([]market.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("csv row %d: want %d fields, got %d", i+2, len(csvHeader), len(rec))
		}
		var b market.Bar
		if b.Timestamp, err = strconv.ParseInt(rec[0], 10, 64); err != nil {
			return nil, fmt.Errorf("csv row %d timestamp: %w", i+2, err)
		}
		fields := []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
		for j, dst := range fields {
			if *dst, err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, fmt.Errorf("csv row %d %s: %w", i+2, csvHeader[j+1], err)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// JSONSaver stores bars as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []market.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(bars)
}

func (JSONSaver) Load(path string) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var bars []market.Bar
	if err := json.NewDecoder(f).Decode(&bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// ParquetSaver stores bars as a Parquet file, the default for large histories.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []market.Bar, path string) error {
	return parquet.WriteFile(path, bars)
}

func (ParquetSaver) Load(path string) ([]market.Bar, error) {
	return parquet.ReadFile[market.Bar](path)
}
