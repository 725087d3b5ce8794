package strategy

import (
	"fmt"
	"time"

	"momentum-go/internal/indicator"
)

// epsilon bounds float comparisons on position fractions.
const epsilon = 1e-9

// ExitKind labels why a position was reduced or closed.
type ExitKind string

const (
	ExitStopLoss      ExitKind = "stop_loss"
	ExitTrailingStop  ExitKind = "trailing_stop"
	ExitTakeProfit    ExitKind = "take_profit"
	ExitOverbought    ExitKind = "rsi_overbought"
	ExitTrendReversal ExitKind = "trend_reversal"
)

// Position is the mutable record owned by the engine for one open trade.
// Remaining is the fraction of the original fill still open; it only
// decreases. Highest only increases.
type Position struct {
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	EntryATR   float64   `json:"entry_atr"`
	Quantity   float64   `json:"quantity"` // original filled quantity
	Remaining  float64   `json:"remaining"`
	Highest    float64   `json:"highest"`
	TiersHit   []bool    `json:"tiers_hit"`
}

// NewPosition opens a position record from an entry fill.
func NewPosition(price, qty, atr float64, ts time.Time, tpLevels int) *Position {
	return &Position{
		EntryPrice: price,
		EntryTime:  ts,
		EntryATR:   atr,
		Quantity:   qty,
		Remaining:  1.0,
		Highest:    price,
		TiersHit:   make([]bool, tpLevels),
	}
}

// UnrealizedPct is the fractional gain or loss at the given close.
func (p *Position) UnrealizedPct(close float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (close - p.EntryPrice) / p.EntryPrice
}

// RemainingQty converts the remaining fraction back into asset units.
func (p *Position) RemainingQty() float64 { return p.Quantity * p.Remaining }

// Closed reports whether the position has been fully exited.
func (p *Position) Closed() bool { return p.Remaining <= epsilon }

// Reduce applies a sell fill covering the given fraction of the current
// position. Remaining snaps to zero within tolerance.
func (p *Position) Reduce(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	p.Remaining *= 1 - fraction
	if p.Remaining <= epsilon {
		p.Remaining = 0
	}
}

// ExitSignal describes a triggered exit: the fraction of the current
// position to close and the trigger that fired.
type ExitSignal struct {
	Kind     ExitKind
	Fraction float64 // fraction of the position as it currently stands
	Tier     int     // 1-based take-profit tier, 0 otherwise
	Reason   string
}

// EvaluateExit runs the exit triggers against the current bar close in fixed
// precedence: stop-loss, trailing stop, take-profit tiers (low to high, each
// once), overbought partial, trend reversal. The highest-price watermark is
// ratcheted before the trailing check. At most one trigger fires per bar.
func (p *Position) EvaluateExit(close float64, snap indicator.Snapshot, params Params) *ExitSignal {
	if p.Closed() {
		return nil
	}
	pnl := p.UnrealizedPct(close)

	stop := p.EntryPrice - params.StopLossATRMultiplier*p.EntryATR
	if close <= stop {
		return &ExitSignal{
			Kind:     ExitStopLoss,
			Fraction: 1,
			Reason:   fmt.Sprintf("stop loss at %.2f%%", pnl*100),
		}
	}

	if close > p.Highest {
		p.Highest = close
	}
	if close <= p.Highest*(1-params.TrailingStopPct) {
		return &ExitSignal{
			Kind:     ExitTrailingStop,
			Fraction: 1,
			Reason:   fmt.Sprintf("trailing stop from %.2f at %.2f%%", p.Highest, pnl*100),
		}
	}

	for i, level := range params.TakeProfitLevels {
		if i < len(p.TiersHit) && p.TiersHit[i] {
			continue
		}
		if pnl < level {
			break
		}
		p.markTier(i)
		// Tier i closes 1/(n-i) of what currently remains, so the three
		// tiers carve the position into equal thirds of the original.
		fraction := 1.0 / float64(len(params.TakeProfitLevels)-i)
		return &ExitSignal{
			Kind:     ExitTakeProfit,
			Fraction: fraction,
			Tier:     i + 1,
			Reason:   fmt.Sprintf("take profit %d at %.2f%%", i+1, pnl*100),
		}
	}

	if snap.RSI > params.RSIOverbought && pnl > params.OverboughtExitMinGain {
		return &ExitSignal{
			Kind:     ExitOverbought,
			Fraction: 0.5,
			Reason:   fmt.Sprintf("RSI overbought exit at %.2f%%", pnl*100),
		}
	}

	if snap.EMAFast < snap.EMAMedium && pnl > -params.ReversalExitMaxLoss {
		return &ExitSignal{
			Kind:     ExitTrendReversal,
			Fraction: 1,
			Reason:   fmt.Sprintf("trend reversal exit at %.2f%%", pnl*100),
		}
	}

	return nil
}

func (p *Position) markTier(i int) {
	for len(p.TiersHit) <= i {
		p.TiersHit = append(p.TiersHit, false)
	}
	p.TiersHit[i] = true
}
