// Package strategy houses the signal-scoring and position-lifecycle engine:
// confluence scoring, entry gating, position sizing, and staged exits.
package strategy

import (
	"momentum-go/internal/indicator"
)

// Gauge identifies one of the six scored indicators.
type Gauge int

const (
	GaugeEMA Gauge = iota
	GaugeRSI
	GaugeMACD
	GaugeBollinger
	GaugeMomentum
	GaugeVolatility
	gaugeCount
)

// Tier is the credit level one gauge contributes to the confluence score.
type Tier int

const (
	TierZero Tier = iota
	TierHalf
	TierFull
)

// Weight converts a tier to its numeric credit.
func (t Tier) Weight() float64 {
	switch t {
	case TierFull:
		return 1.0
	case TierHalf:
		return 0.5
	default:
		return 0
	}
}

// Contributions holds the tier assigned to each gauge for one bar.
type Contributions [gaugeCount]Tier

// Score normalizes the summed tier weights into [0,1]. Each gauge carries an
// equal 1/6 unit.
func (c Contributions) Score() float64 {
	var sum float64
	for _, tier := range c {
		sum += tier.Weight()
	}
	score := sum / float64(gaugeCount)
	if score > 1 {
		score = 1
	}
	return score
}

// neutral RSI midline separating half credit from none.
const rsiMidline = 50

// ScoreContributions assigns a tier per gauge from the indicator snapshot and
// the current close.
func ScoreContributions(snap indicator.Snapshot, close float64, p Params) Contributions {
	var c Contributions

	switch {
	case snap.EMAFast > snap.EMAMedium && snap.EMAMedium > snap.EMASlow:
		c[GaugeEMA] = TierFull
	case snap.EMAFast > snap.EMAMedium:
		c[GaugeEMA] = TierHalf
	}

	switch {
	case snap.RSI < p.RSIOversold:
		c[GaugeRSI] = TierFull
	case snap.RSI < rsiMidline:
		c[GaugeRSI] = TierHalf
	}

	if snap.MACDLine > snap.MACDSignal {
		c[GaugeMACD] = TierFull
	}

	nearLower := snap.BBLower + p.BBLowerTolerance*(snap.BBMiddle-snap.BBLower)
	switch {
	case close <= nearLower:
		c[GaugeBollinger] = TierFull
	case close < snap.BBMiddle:
		c[GaugeBollinger] = TierHalf
	}

	switch {
	case snap.Momentum > 0:
		c[GaugeMomentum] = TierFull
	case snap.Momentum > -p.MomentumDipTolerance:
		c[GaugeMomentum] = TierHalf
	}

	if close > 0 {
		ratio := snap.ATR / close
		switch {
		case ratio < p.LowVolatility:
			c[GaugeVolatility] = TierFull
		case ratio < p.ModerateVolatility:
			c[GaugeVolatility] = TierHalf
		}
	}

	return c
}

// Score is the one-shot convenience over ScoreContributions.
func Score(snap indicator.Snapshot, close float64, p Params) float64 {
	return ScoreContributions(snap, close, p).Score()
}
