// Package market standardizes the OHLCV bar payloads shared between data
// retrieval, the decision engine, and persistence.
package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidBar marks a bar that cannot be evaluated: non-monotonic timestamp,
// non-positive price, or a NaN/Inf field. Recoverable; the caller holds.
var ErrInvalidBar = errors.New("invalid bar")

// Bar models one OHLCV candle. Immutable once produced. The json/parquet tags
// follow the compact single-letter convention so cached files stay small.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix milliseconds, bar open time
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    float64 `json:"v" parquet:"v"`
}

// Time returns the bar open time as a time.Time.
func (b Bar) Time() time.Time { return time.UnixMilli(b.Timestamp) }

// Validate checks a single bar for usable numeric content.
func (b Bar) Validate() error {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite field", ErrInvalidBar)
		}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrInvalidBar)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume", ErrInvalidBar)
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: high below low", ErrInvalidBar)
	}
	return nil
}

// ValidateNext checks bar b against the previously accepted bar. A zero prev
// timestamp means b is the first bar of the series.
func (b Bar) ValidateNext(prevTimestamp int64) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if prevTimestamp != 0 && b.Timestamp <= prevTimestamp {
		return fmt.Errorf("%w: timestamp %d not after %d", ErrInvalidBar, b.Timestamp, prevTimestamp)
	}
	return nil
}

// Closes extracts the close series from bars in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
