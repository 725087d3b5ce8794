// Package indicator computes the technical indicators consumed by the
// confluence scorer: EMA, RSI, MACD, Bollinger Bands, ATR, and momentum.
// All functions are pure computations over an ordered trailing window.
package indicator

import (
	"errors"
	"math"

	"momentum-go/internal/market"
)

// ErrInsufficientHistory is returned while the warm-up window is still
// filling. Not fatal; the caller holds until enough bars arrive.
var ErrInsufficientHistory = errors.New("insufficient history for indicators")

// Config groups the indicator periods. Defaults match hourly BTC/ETH tuning.
type Config struct {
	EMAFast        int     `yaml:"ema_fast" validate:"gt=0"`
	EMAMedium      int     `yaml:"ema_medium" validate:"gt=0"`
	EMASlow        int     `yaml:"ema_slow" validate:"gt=0"`
	RSIPeriod      int     `yaml:"rsi_period" validate:"gt=1"`
	MACDFast       int     `yaml:"macd_fast" validate:"gt=0"`
	MACDSlow       int     `yaml:"macd_slow" validate:"gt=0"`
	MACDSignal     int     `yaml:"macd_signal" validate:"gt=0"`
	BBPeriod       int     `yaml:"bb_period" validate:"gt=1"`
	BBStdDev       float64 `yaml:"bb_std" validate:"gt=0"`
	ATRPeriod      int     `yaml:"atr_period" validate:"gt=0"`
	MomentumPeriod int     `yaml:"momentum_period" validate:"gt=0"`
}

// DefaultConfig returns the standard periods: EMA 20/50/100, RSI 14,
// MACD 12/26/9, Bollinger 20/2σ, ATR 14, momentum 10.
func DefaultConfig() Config {
	return Config{
		EMAFast:        20,
		EMAMedium:      50,
		EMASlow:        100,
		RSIPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		BBPeriod:       20,
		BBStdDev:       2.0,
		ATRPeriod:      14,
		MomentumPeriod: 10,
	}
}

// MinBars reports the warm-up length required before Compute succeeds.
func (c Config) MinBars() int {
	min := c.EMASlow
	for _, n := range []int{
		c.MACDSlow + c.MACDSignal - 1,
		c.BBPeriod,
		c.ATRPeriod + 1,
		c.MomentumPeriod + 1,
		c.RSIPeriod + 1,
	} {
		if n > min {
			min = n
		}
	}
	return min
}

// Snapshot bundles every indicator value for the most recent bar. Derived
// data; recomputed each evaluation, never persisted.
type Snapshot struct {
	EMAFast    float64
	EMAMedium  float64
	EMASlow    float64
	RSI        float64
	MACDLine   float64
	MACDSignal float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	ATR        float64
	Momentum   float64
}

// Compute produces a Snapshot from the trailing bar window, or
// ErrInsufficientHistory when fewer than MinBars bars are available.
func Compute(bars []market.Bar, cfg Config) (Snapshot, error) {
	if len(bars) < cfg.MinBars() {
		return Snapshot{}, ErrInsufficientHistory
	}
	closes := market.Closes(bars)

	emaFast, err := EMA(closes, cfg.EMAFast)
	if err != nil {
		return Snapshot{}, err
	}
	emaMedium, err := EMA(closes, cfg.EMAMedium)
	if err != nil {
		return Snapshot{}, err
	}
	emaSlow, err := EMA(closes, cfg.EMASlow)
	if err != nil {
		return Snapshot{}, err
	}
	rsi, err := RSI(closes, cfg.RSIPeriod)
	if err != nil {
		return Snapshot{}, err
	}
	macdLine, macdSignal, err := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		return Snapshot{}, err
	}
	upper, middle, lower, err := Bollinger(closes, cfg.BBPeriod, cfg.BBStdDev)
	if err != nil {
		return Snapshot{}, err
	}
	atr, err := ATR(bars, cfg.ATRPeriod)
	if err != nil {
		return Snapshot{}, err
	}
	mom, err := Momentum(closes, cfg.MomentumPeriod)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		EMAFast:    emaFast,
		EMAMedium:  emaMedium,
		EMASlow:    emaSlow,
		RSI:        rsi,
		MACDLine:   macdLine,
		MACDSignal: macdSignal,
		BBUpper:    upper,
		BBMiddle:   middle,
		BBLower:    lower,
		ATR:        atr,
		Momentum:   mom,
	}, nil
}

// EMA computes an exponential moving average seeded with the simple average
// of the first `period` values, smoothing factor 2/(period+1).
func EMA(values []float64, period int) (float64, error) {
	series, err := emaSeries(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// emaSeries returns the EMA value for every index from period-1 onward.
func emaSeries(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, ErrInsufficientHistory
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	ema := mean(values[:period])
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out, nil
}

// RSI computes the Wilder-smoothed relative strength index in [0,100].
// Returns 100 when the average loss is zero.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 1 || len(closes) < period+1 {
		return 0, ErrInsufficientHistory
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// MACD returns the MACD line (fast EMA − slow EMA) for the latest value and
// the signal line, an EMA of the MACD line series.
func MACD(closes []float64, fast, slow, signal int) (line, signalLine float64, err error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return 0, 0, ErrInsufficientHistory
	}
	if len(closes) < slow+signal-1 {
		return 0, 0, ErrInsufficientHistory
	}
	fastSeries, err := emaSeries(closes, fast)
	if err != nil {
		return 0, 0, err
	}
	slowSeries, err := emaSeries(closes, slow)
	if err != nil {
		return 0, 0, err
	}
	// Align the two series on the bars where both are defined.
	offset := len(fastSeries) - len(slowSeries)
	macd := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macd[i] = fastSeries[i+offset] - slowSeries[i]
	}
	signalSeries, err := emaSeries(macd, signal)
	if err != nil {
		return 0, 0, err
	}
	return macd[len(macd)-1], signalSeries[len(signalSeries)-1], nil
}

// Bollinger computes the middle SMA band and the upper/lower bands at
// ± stdDev population standard deviations. Zero variance collapses the bands
// onto the middle.
func Bollinger(closes []float64, period int, stdDev float64) (upper, middle, lower float64, err error) {
	if period <= 1 || len(closes) < period {
		return 0, 0, 0, ErrInsufficientHistory
	}
	window := closes[len(closes)-period:]
	middle = mean(window)
	var variance float64
	for _, v := range window {
		d := v - middle
		variance += d * d
	}
	variance /= float64(period)
	sd := math.Sqrt(variance)
	return middle + stdDev*sd, middle, middle - stdDev*sd, nil
}

// ATR computes the Wilder-smoothed average true range over the bar window.
func ATR(bars []market.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period+1 {
		return 0, ErrInsufficientHistory
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i], bars[i-1].Close))
	}
	atr := mean(trs[:period])
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr, nil
}

func trueRange(b market.Bar, prevClose float64) float64 {
	tr := b.High - b.Low
	if hc := math.Abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// Momentum returns the fractional price change over the lookback period.
func Momentum(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrInsufficientHistory
	}
	base := closes[len(closes)-1-period]
	if base == 0 {
		return 0, nil
	}
	return (closes[len(closes)-1] - base) / base, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
